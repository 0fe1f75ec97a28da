package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"trade-service/internal/observability"
	"trade-service/internal/repositories"
	"trade-service/internal/telemetry"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (int, error)
}

// SubscriptionHandler upgrades websocket subscriptions to the three room
// families.
type SubscriptionHandler struct {
	hub      *Hub
	chatRepo repositories.ChatRepository
	tokens   TokenValidator
	audit    *telemetry.AuditEmitter
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(hub *Hub, chatRepo repositories.ChatRepository, tokens TokenValidator, audit *telemetry.AuditEmitter) *SubscriptionHandler {
	return &SubscriptionHandler{hub: hub, chatRepo: chatRepo, tokens: tokens, audit: audit}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat subscribes a chat participant to the chat room.
func (h *SubscriptionHandler) HandleChat(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	h.subscribe(c, ChatRoom(chatID), userID)
}

// HandleListing subscribes any authenticated user to a listing room.
func (h *SubscriptionHandler) HandleListing(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.subscribe(c, ListingRoom(listingID), userID)
}

// HandleNotifications subscribes a user to their own notification channel.
func (h *SubscriptionHandler) HandleNotifications(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.subscribe(c, NotificationRoom(userID), userID)
}

func (h *SubscriptionHandler) authenticate(c *gin.Context) (int, bool) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return 0, false
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	return userID, true
}

func (h *SubscriptionHandler) subscribe(c *gin.Context, room string, userID int) {
	ctx, span := otel.Tracer("trade-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kind := roomKind(room)
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(room, conn, info)

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	h.audit.Emit(ctx, "ws_connect", "subscribed to "+room, requestID, int64Ptr(userID))

	// Keep connection alive and clean up on close.
	go func() {
		defer func() {
			h.hub.RemoveClient(room, conn)
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			h.audit.Emit(ctx, "ws_disconnect", "left "+room, requestID, int64Ptr(userID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
				}
				return
			}
		}
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && (header[:7] == "Bearer " || header[:7] == "bearer ") {
		return header[7:]
	}
	return c.Query("token")
}

func int64Ptr(v int) *int64 {
	value := int64(v)
	return &value
}
