package repositories

import "trade-service/internal/models"

// Pure decision layer for the trade state machine. Each function judges
// one operation against the chat/listing pair loaded under the listing
// row lock; the transaction code applies whatever they allow and never
// re-checks.

// decideSelect validates select-trader. alreadySelected reports the
// retry case: the chat holds the slot and nothing must change. It takes
// precedence over the status check so a retried select never flips from
// success to error.
func decideSelect(chat models.Chat, listing models.Listing, callerID int) (alreadySelected bool, err error) {
	if !chat.HasParticipant(callerID) {
		// merged with not-found so existence does not leak
		return false, ErrChatNotFound
	}
	if listing.UserID != callerID {
		return false, ErrNotOwner
	}
	if listing.IsActiveTrader(chat.ID) {
		return true, nil
	}
	if chat.Status != models.StatusActive {
		return false, ErrChatNotActive
	}
	if listing.HasActiveTrader() {
		return false, ErrTraderConflict
	}
	return false, nil
}

// lockInPlan is the decided shape of a lock-in: which flag column the
// caller owns and whether the lock-in doubles as the selection signal.
type lockInPlan struct {
	column     string
	autoSelect bool
}

// decideLockIn resolves the caller's side of the chat and the
// auto-select rule: the owner locking in on an ACTIVE chat while the
// slot is free claims it in the same transaction.
func decideLockIn(chat models.Chat, listing models.Listing, callerID int) (lockInPlan, error) {
	caller, _, err := chat.Sides(callerID)
	if err != nil {
		return lockInPlan{}, ErrChatNotFound
	}
	if chat.Status == models.StatusCancelled {
		return lockInPlan{}, ErrChatCancelled
	}

	plan := lockInPlan{column: "participant1_locked_in"}
	if caller.UserID == chat.Participant2ID {
		plan.column = "participant2_locked_in"
	}
	plan.autoSelect = callerID == listing.UserID &&
		!listing.HasActiveTrader() &&
		chat.Status == models.StatusActive
	return plan, nil
}

// decideRelease validates release-trader.
func decideRelease(chat models.Chat, listing models.Listing, callerID int) error {
	if !chat.HasParticipant(callerID) {
		return ErrChatNotFound
	}
	if listing.UserID != callerID {
		return ErrNotOwner
	}
	if !listing.IsActiveTrader(chat.ID) {
		return ErrNotActiveTrader
	}
	return nil
}

// leaveEffect is what leaving does to the chat.
type leaveEffect int

const (
	// leaveNoop: already cancelled, retry-safe.
	leaveNoop leaveEffect = iota
	// leaveCancel: cancel this chat only.
	leaveCancel
	// leaveRelease: the chat holds the slot, full release effect.
	leaveRelease
)

// decideLeave validates leave and picks its effect.
func decideLeave(chat models.Chat, listing models.Listing, callerID int) (leaveEffect, error) {
	if !chat.HasParticipant(callerID) {
		return leaveNoop, ErrChatNotFound
	}
	if chat.Status == models.StatusCancelled {
		return leaveNoop, nil
	}
	if listing.IsActiveTrader(chat.ID) {
		return leaveRelease, nil
	}
	return leaveCancel, nil
}
