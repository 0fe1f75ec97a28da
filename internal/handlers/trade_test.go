package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trade-service/internal/mocks"
	"trade-service/internal/models"
	"trade-service/internal/repositories"
)

func setupTradeRouter(handler *TradeHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/chats/:chat_id/select-trader", handler.SelectTrader)
	r.POST("/chats/:chat_id/lock-in", handler.LockIn)
	r.POST("/chats/:chat_id/release-trader", handler.ReleaseTrader)
	r.POST("/chats/:chat_id/leave", handler.LeaveChat)
	r.GET("/chats/grouped", handler.GroupedChats)
	return r
}

func strPtr(s string) *string { return &s }

func TestSelectTraderSuccess(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("SelectTrader", mock.Anything, 5, 1).Return(models.TradeSelection{
		ListingID:      9,
		ChatID:         5,
		SelectedUserID: 2,
		Demoted:        []models.ChatRef{{ID: 6, CounterpartyID: 3}},
	}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "chat:6", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "listing:9", "trader-selected", mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/select-trader", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.EqualValues(t, 5, resp["selected_chat_id"])
	assert.EqualValues(t, 2, resp["selected_user_id"])
	assert.EqualValues(t, 1, resp["affected_chats_count"])

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestSelectTraderIdempotent(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("SelectTrader", mock.Anything, 5, 1).Return(models.TradeSelection{
		ListingID:       9,
		ChatID:          5,
		SelectedUserID:  2,
		AlreadySelected: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/select-trader", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 0, resp["affected_chats_count"])

	trades.AssertExpectations(t)
	// nothing changed, so nothing is announced
	broadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSelectTraderStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", repositories.ErrChatNotFound, http.StatusNotFound},
		{"forbidden", repositories.ErrNotOwner, http.StatusForbidden},
		{"invalid state", repositories.ErrChatNotActive, http.StatusBadRequest},
		{"conflict", repositories.ErrTraderConflict, http.StatusConflict},
		{"internal", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := new(mocks.TradeRepositoryMock)
			handler := NewTradeHandler(trades, nil, nil)
			router := setupTradeRouter(handler)

			trades.On("SelectTrader", mock.Anything, 5, 1).Return(models.TradeSelection{}, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/chats/5/select-trader", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			trades.AssertExpectations(t)
		})
	}
}

func TestSelectTraderInvalidChatID(t *testing.T) {
	handler := NewTradeHandler(new(mocks.TradeRepositoryMock), nil, nil)
	router := setupTradeRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chats/abc/select-trader", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockInRedactsContacts(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	view := models.ChatView{
		ID:        5,
		ListingID: 9,
		Status:    models.StatusActive,
		Participant1: models.Participant{
			UserID:          1,
			Username:        "owner",
			EmbarkID:        strPtr("owner#123"),
			DiscordUsername: strPtr("owner#0001"),
			LockedIn:        true,
		},
		Participant2: models.Participant{UserID: 2, Username: "buyer"},
	}.GateContacts()

	trades.On("LockIn", mock.Anything, 5, 1).Return(models.LockInResult{Chat: view}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", view).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/lock-in", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool            `json:"success"`
		Chat    models.ChatView `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Chat.BothLockedIn)
	assert.Nil(t, resp.Chat.Participant1.EmbarkID)
	assert.Nil(t, resp.Chat.Participant1.DiscordUsername)

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestLockInRevealsContactsWhenBothLocked(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	view := models.ChatView{
		ID:           5,
		ListingID:    9,
		Status:       models.StatusActive,
		BothLockedIn: true,
		Participant1: models.Participant{
			UserID: 1, Username: "owner",
			EmbarkID: strPtr("owner#123"), DiscordUsername: strPtr("owner#0001"), LockedIn: true,
		},
		Participant2: models.Participant{
			UserID: 2, Username: "buyer",
			EmbarkID: strPtr("buyer#456"), DiscordUsername: strPtr("buyer#0002"), LockedIn: true,
		},
	}.GateContacts()

	trades.On("LockIn", mock.Anything, 5, 1).Return(models.LockInResult{Chat: view}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", view).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/lock-in", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chat models.ChatView `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Chat.Participant2.EmbarkID)
	assert.Equal(t, "buyer#456", *resp.Chat.Participant2.EmbarkID)
	require.NotNil(t, resp.Chat.Participant2.DiscordUsername)
	assert.Equal(t, "buyer#0002", *resp.Chat.Participant2.DiscordUsername)

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestLockInAutoSelectBroadcasts(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	view := models.ChatView{ID: 5, ListingID: 9, Status: models.StatusActive, IsSelectedTrader: true}
	trades.On("LockIn", mock.Anything, 5, 1).Return(models.LockInResult{
		Chat: view,
		Selection: &models.TradeSelection{
			ListingID:      9,
			ChatID:         5,
			SelectedUserID: 2,
			Demoted:        []models.ChatRef{{ID: 6, CounterpartyID: 3}},
		},
	}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", mock.Anything).Twice()
	broadcaster.On("Publish", "chat:6", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "listing:9", "trader-selected", mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/lock-in", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestLockInErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", repositories.ErrChatNotFound, http.StatusNotFound},
		{"cancelled", repositories.ErrChatCancelled, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := new(mocks.TradeRepositoryMock)
			handler := NewTradeHandler(trades, nil, nil)
			router := setupTradeRouter(handler)

			trades.On("LockIn", mock.Anything, 5, 1).Return(models.LockInResult{}, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/chats/5/lock-in", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			trades.AssertExpectations(t)
		})
	}
}

func TestReleaseTraderSuccess(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("ReleaseTrader", mock.Anything, 5, 1).Return(models.TradeRelease{
		ListingID:      9,
		ReleasedChatID: 5,
		Reactivated:    []models.ChatRef{{ID: 6, CounterpartyID: 3}, {ID: 7, CounterpartyID: 4}},
	}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "chat:6", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "chat:7", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "notifications:3", "queue-reactivated", mock.Anything).Once()
	broadcaster.On("Publish", "notifications:4", "queue-reactivated", mock.Anything).Once()
	broadcaster.On("Publish", "listing:9", "queue-reactivated", mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/release-trader", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 5, resp["released_chat_id"])
	assert.EqualValues(t, 2, resp["reactivated_chats_count"])

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestReleaseTraderErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not owner", repositories.ErrNotOwner, http.StatusForbidden},
		{"not active trader", repositories.ErrNotActiveTrader, http.StatusBadRequest},
		{"not found", repositories.ErrChatNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := new(mocks.TradeRepositoryMock)
			handler := NewTradeHandler(trades, nil, nil)
			router := setupTradeRouter(handler)

			trades.On("ReleaseTrader", mock.Anything, 5, 1).Return(models.TradeRelease{}, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/chats/5/release-trader", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			trades.AssertExpectations(t)
		})
	}
}

func TestLeaveChatWithoutRelease(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("LeaveChat", mock.Anything, 5, 1).Return(models.LeaveResult{ChatID: 5, ListingID: 9}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, string(models.StatusCancelled), resp["status"])
	assert.Equal(t, false, resp["queue_reactivated"])
	assert.EqualValues(t, 0, resp["reactivated_chats_count"])

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestLeaveChatAsActiveTraderTriggersRelease(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("LeaveChat", mock.Anything, 5, 1).Return(models.LeaveResult{
		ChatID:    5,
		ListingID: 9,
		Release: &models.TradeRelease{
			ListingID:      9,
			ReleasedChatID: 5,
			Reactivated:    []models.ChatRef{{ID: 6, CounterpartyID: 3}},
		},
	}, nil).Once()
	broadcaster.On("Publish", "chat:5", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "chat:6", "chat-updated", mock.Anything).Once()
	broadcaster.On("Publish", "notifications:3", "queue-reactivated", mock.Anything).Once()
	broadcaster.On("Publish", "listing:9", "queue-reactivated", mock.Anything).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["queue_reactivated"])
	assert.EqualValues(t, 1, resp["reactivated_chats_count"])

	trades.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestLeaveChatAlreadyCancelled(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	broadcaster := new(mocks.BroadcasterMock)
	handler := NewTradeHandler(trades, broadcaster, nil)
	router := setupTradeRouter(handler)

	trades.On("LeaveChat", mock.Anything, 5, 1).Return(models.LeaveResult{
		ChatID:           5,
		ListingID:        9,
		AlreadyCancelled: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	trades.AssertExpectations(t)
	broadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestGroupedChatsSuccess(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	handler := NewTradeHandler(trades, nil, nil)
	router := setupTradeRouter(handler)

	trades.On("GroupedChats", mock.Anything, 1).Return(models.GroupedChats{
		OwnedListings: []models.ListingGroup{{
			Listing: models.Listing{ID: 9, UserID: 1},
			Chats: []models.ChatOverview{{
				ChatView:           models.ChatView{ID: 5, ListingID: 9, Status: models.StatusActive},
				CounterpartyRating: 4.5,
			}},
		}},
		IncomingChats: []models.ChatOverview{},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/grouped", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp, "owned_listings")
	assert.Contains(t, resp, "incoming_chats")

	trades.AssertExpectations(t)
}

func TestGroupedChatsError(t *testing.T) {
	trades := new(mocks.TradeRepositoryMock)
	handler := NewTradeHandler(trades, nil, nil)
	router := setupTradeRouter(handler)

	trades.On("GroupedChats", mock.Anything, 1).Return(models.GroupedChats{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/grouped", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	trades.AssertExpectations(t)
}
