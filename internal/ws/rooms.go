package ws

import (
	"fmt"
	"strings"
)

// Room name constructors. Handlers and subscription endpoints must agree
// on these formats, so they live in one place.

func ChatRoom(chatID int) string {
	return fmt.Sprintf("chat:%d", chatID)
}

func ListingRoom(listingID int) string {
	return fmt.Sprintf("listing:%d", listingID)
}

func NotificationRoom(userID int) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// roomKind extracts the room family for metrics labels.
func roomKind(room string) string {
	if idx := strings.IndexByte(room, ':'); idx > 0 {
		return room[:idx]
	}
	return "unknown"
}
