package chathub_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chatsync/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage for failure paths.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateLastSeen(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *MockStorage) FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) CreateConversation(ctx context.Context, sender, receiver string) (*models.Conversation, error) {
	args := m.Called(ctx, sender, receiver)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStorage) AppendMessage(ctx context.Context, conversationID string, msg *models.Message) (*models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) MarkMessagesSeen(ctx context.Context, conversationID, byUserID string) (int64, error) {
	args := m.Called(ctx, conversationID, byUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

// MockClient records everything the hub sends to it.
type MockClient struct {
	userID string

	mu     sync.Mutex
	events []models.OutboundEvent
	closed bool
	full   bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{userID: userID}
}

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) Send(ev models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events returns and clears what the client has received so far.
func (c *MockClient) Events() []models.OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Named filters the received events by name without clearing them.
func (c *MockClient) Named(name string) []models.OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.OutboundEvent
	for _, ev := range c.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventNames(evs []models.OutboundEvent) []string {
	names := make([]string, 0, len(evs))
	for _, ev := range evs {
		names = append(names, ev.Event)
	}
	return names
}

// lastNamed returns the most recent event called name, failing the test if none arrived.
func lastNamed(t *testing.T, c *MockClient, name string) models.OutboundEvent {
	t.Helper()
	evs := c.Named(name)
	if len(evs) == 0 {
		t.Fatalf("%s received no %q event", c.userID, name)
	}
	return evs[len(evs)-1]
}
