package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trade-service/internal/models"
	"trade-service/internal/repositories"
)

type TradeRepositoryMock struct {
	mock.Mock
}

func (m *TradeRepositoryMock) SelectTrader(ctx context.Context, chatID int, callerID int) (models.TradeSelection, error) {
	args := m.Called(ctx, chatID, callerID)
	var selection models.TradeSelection
	if val := args.Get(0); val != nil {
		selection = val.(models.TradeSelection)
	}
	return selection, args.Error(1)
}

func (m *TradeRepositoryMock) LockIn(ctx context.Context, chatID int, callerID int) (models.LockInResult, error) {
	args := m.Called(ctx, chatID, callerID)
	var result models.LockInResult
	if val := args.Get(0); val != nil {
		result = val.(models.LockInResult)
	}
	return result, args.Error(1)
}

func (m *TradeRepositoryMock) ReleaseTrader(ctx context.Context, chatID int, callerID int) (models.TradeRelease, error) {
	args := m.Called(ctx, chatID, callerID)
	var release models.TradeRelease
	if val := args.Get(0); val != nil {
		release = val.(models.TradeRelease)
	}
	return release, args.Error(1)
}

func (m *TradeRepositoryMock) LeaveChat(ctx context.Context, chatID int, callerID int) (models.LeaveResult, error) {
	args := m.Called(ctx, chatID, callerID)
	var result models.LeaveResult
	if val := args.Get(0); val != nil {
		result = val.(models.LeaveResult)
	}
	return result, args.Error(1)
}

func (m *TradeRepositoryMock) GroupedChats(ctx context.Context, userID int) (models.GroupedChats, error) {
	args := m.Called(ctx, userID)
	var grouped models.GroupedChats
	if val := args.Get(0); val != nil {
		grouped = val.(models.GroupedChats)
	}
	return grouped, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) StartChat(ctx context.Context, listingID int, counterpartyID int) (models.Chat, error) {
	args := m.Called(ctx, listingID, counterpartyID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateChatMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListChatMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) LastMessage(ctx context.Context, chatID int) (*models.MessagePreview, error) {
	args := m.Called(ctx, chatID)
	var preview *models.MessagePreview
	if val := args.Get(0); val != nil {
		preview = val.(*models.MessagePreview)
	}
	return preview, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ListingRepositoryMock struct {
	mock.Mock
}

func (m *ListingRepositoryMock) CreateListing(ctx context.Context, listing models.Listing) (models.Listing, error) {
	args := m.Called(ctx, listing)
	var created models.Listing
	if val := args.Get(0); val != nil {
		created = val.(models.Listing)
	}
	return created, args.Error(1)
}

func (m *ListingRepositoryMock) GetListing(ctx context.Context, listingID int) (models.Listing, error) {
	args := m.Called(ctx, listingID)
	var listing models.Listing
	if val := args.Get(0); val != nil {
		listing = val.(models.Listing)
	}
	return listing, args.Error(1)
}

type RatingRepositoryMock struct {
	mock.Mock
}

func (m *RatingRepositoryMock) CreateRating(ctx context.Context, rating models.Rating) (models.Rating, error) {
	args := m.Called(ctx, rating)
	var created models.Rating
	if val := args.Get(0); val != nil {
		created = val.(models.Rating)
	}
	return created, args.Error(1)
}

func (m *RatingRepositoryMock) AverageForUser(ctx context.Context, userID int) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

// BroadcasterMock records realtime publishes for assertion.
type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Publish(room string, event string, payload any) {
	m.Called(room, event, payload)
}

var _ repositories.TradeRepository = (*TradeRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ListingRepository = (*ListingRepositoryMock)(nil)
var _ repositories.RatingRepository = (*RatingRepositoryMock)(nil)
