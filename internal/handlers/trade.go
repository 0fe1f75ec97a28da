package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trade-service/internal/models"
	"trade-service/internal/observability"
	"trade-service/internal/repositories"
	"trade-service/internal/telemetry"
	"trade-service/internal/ws"
)

// TradeHandler exposes the trade coordinator over HTTP. All state changes
// happen inside the repository transaction; broadcasts run strictly after
// it returns and never influence the response.
type TradeHandler struct {
	trades      repositories.TradeRepository
	broadcaster Broadcaster
	audit       *telemetry.AuditEmitter
}

// NewTradeHandler builds a TradeHandler. A nil broadcaster disables the
// realtime fan-out.
func NewTradeHandler(trades repositories.TradeRepository, broadcaster Broadcaster, audit *telemetry.AuditEmitter) *TradeHandler {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &TradeHandler{trades: trades, broadcaster: broadcaster, audit: audit}
}

// SelectTrader designates a chat as the listing's active trade.
func (h *TradeHandler) SelectTrader(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	selection, err := h.trades.SelectTrader(c.Request.Context(), chatID, userID)
	if err != nil {
		h.fail(c, "select_trader", err)
		return
	}

	observability.IncTradeOp("select_trader", "ok")
	if !selection.AlreadySelected {
		h.broadcastSelection(selection)
		h.audit.Emit(c.Request.Context(), "trader_selected",
			fmt.Sprintf("chat %d selected as active trader for listing %d", selection.ChatID, selection.ListingID),
			requestIDFromContext(c), userIDFromContext(c))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"selected_chat_id":     selection.ChatID,
		"selected_user_id":     selection.SelectedUserID,
		"affected_chats_count": len(selection.Demoted),
	})
}

// LockIn records the caller's commitment and reveals contact fields once
// both sides are committed.
func (h *TradeHandler) LockIn(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	result, err := h.trades.LockIn(c.Request.Context(), chatID, userID)
	if err != nil {
		h.fail(c, "lock_in", err)
		return
	}

	observability.IncTradeOp("lock_in", "ok")
	h.broadcaster.Publish(ws.ChatRoom(result.Chat.ID), "chat-updated", result.Chat)
	if result.Selection != nil {
		h.broadcastSelection(*result.Selection)
	}
	h.audit.Emit(c.Request.Context(), "lock_in",
		fmt.Sprintf("user %d locked in on chat %d", userID, chatID),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chat":    result.Chat,
	})
}

// ReleaseTrader releases the current active trade and reactivates the
// queued chats.
func (h *TradeHandler) ReleaseTrader(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	release, err := h.trades.ReleaseTrader(c.Request.Context(), chatID, userID)
	if err != nil {
		h.fail(c, "release_trader", err)
		return
	}

	observability.IncTradeOp("release_trader", "ok")
	h.broadcastRelease(release)
	h.audit.Emit(c.Request.Context(), "trader_released",
		fmt.Sprintf("chat %d released on listing %d, %d chats reactivated", release.ReleasedChatID, release.ListingID, len(release.Reactivated)),
		requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"released_chat_id":        release.ReleasedChatID,
		"reactivated_chats_count": len(release.Reactivated),
	})
}

// LeaveChat cancels the caller's chat; leaving the active trade performs
// the full release effect.
func (h *TradeHandler) LeaveChat(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	result, err := h.trades.LeaveChat(c.Request.Context(), chatID, userID)
	if err != nil {
		h.fail(c, "leave_chat", err)
		return
	}

	observability.IncTradeOp("leave_chat", "ok")
	reactivated := 0
	if !result.AlreadyCancelled {
		if result.Release != nil {
			h.broadcastRelease(*result.Release)
			reactivated = len(result.Release.Reactivated)
		} else {
			h.broadcaster.Publish(ws.ChatRoom(result.ChatID), "chat-updated", gin.H{
				"chat_id": result.ChatID,
				"status":  models.StatusCancelled,
			})
		}
		h.audit.Emit(c.Request.Context(), "chat_left",
			fmt.Sprintf("user %d left chat %d", userID, chatID),
			requestIDFromContext(c), userIDFromContext(c))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"status":                  models.StatusCancelled,
		"queue_reactivated":       result.Release != nil,
		"reactivated_chats_count": reactivated,
	})
}

// GroupedChats returns the caller's two trade projections.
func (h *TradeHandler) GroupedChats(c *gin.Context) {
	userID := c.GetInt("userID")

	grouped, err := h.trades.GroupedChats(c.Request.Context(), userID)
	if err != nil {
		log.Printf("grouped view failed: %v", err)
		observability.IncTradeOp("grouped_view", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	observability.IncTradeOp("grouped_view", "ok")
	c.JSON(http.StatusOK, gin.H{
		"owned_listings": grouped.OwnedListings,
		"incoming_chats": grouped.IncomingChats,
	})
}

func (h *TradeHandler) broadcastSelection(selection models.TradeSelection) {
	h.broadcaster.Publish(ws.ChatRoom(selection.ChatID), "chat-updated", gin.H{
		"chat_id":            selection.ChatID,
		"is_selected_trader": true,
	})
	for _, demoted := range selection.Demoted {
		h.broadcaster.Publish(ws.ChatRoom(demoted.ID), "chat-updated", gin.H{
			"chat_id":            demoted.ID,
			"status":             models.StatusOwnerTrading,
			"is_selected_trader": false,
		})
	}
	h.broadcaster.Publish(ws.ListingRoom(selection.ListingID), "trader-selected", gin.H{
		"listing_id":       selection.ListingID,
		"selected_chat_id": selection.ChatID,
		"selected_user_id": selection.SelectedUserID,
	})
}

func (h *TradeHandler) broadcastRelease(release models.TradeRelease) {
	h.broadcaster.Publish(ws.ChatRoom(release.ReleasedChatID), "chat-updated", gin.H{
		"chat_id": release.ReleasedChatID,
		"status":  models.StatusCancelled,
	})
	for _, chat := range release.Reactivated {
		h.broadcaster.Publish(ws.ChatRoom(chat.ID), "chat-updated", gin.H{
			"chat_id": chat.ID,
			"status":  models.StatusActive,
		})
		h.broadcaster.Publish(ws.NotificationRoom(chat.CounterpartyID), "queue-reactivated", gin.H{
			"chat_id":    chat.ID,
			"listing_id": release.ListingID,
			"message":    "the listing is open for trade again",
		})
	}
	h.broadcaster.Publish(ws.ListingRoom(release.ListingID), "queue-reactivated", gin.H{
		"listing_id":        release.ListingID,
		"released_chat_id":  release.ReleasedChatID,
		"reactivated_count": len(release.Reactivated),
	})
}

// fail maps repository sentinel errors onto the HTTP taxonomy. Internal
// detail never reaches the response body.
func (h *TradeHandler) fail(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, repositories.ErrChatNotFound):
		status, message = http.StatusNotFound, "chat not found"
	case errors.Is(err, repositories.ErrNotOwner):
		status, message = http.StatusForbidden, "only the listing owner may do this"
	case errors.Is(err, repositories.ErrChatNotActive):
		status, message = http.StatusBadRequest, "chat is not active"
	case errors.Is(err, repositories.ErrChatCancelled):
		status, message = http.StatusBadRequest, "chat is cancelled"
	case errors.Is(err, repositories.ErrNotActiveTrader):
		status, message = http.StatusBadRequest, "chat is not the active trader"
	case errors.Is(err, repositories.ErrTraderConflict):
		status, message = http.StatusConflict, "another chat is already the active trader"
	}

	if status == http.StatusInternalServerError {
		log.Printf("%s failed: %v", operation, err)
		observability.IncTradeOp(operation, "error")
	} else {
		observability.IncTradeOp(operation, "rejected")
	}
	c.JSON(status, gin.H{"error": message})
}

func chatIDParam(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}
