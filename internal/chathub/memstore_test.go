package chathub_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chatsync/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// memStore is an in-memory storage.Storage with the same semantics as the
// Postgres service, used for end-to-end handler scenarios.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	conversations map[string]*models.Conversation // by pair key
	messages      map[string]*models.Message
	clock         time.Time
	lastSeen      map[string]time.Time
}

func newMemStore(users ...*models.User) *memStore {
	s := &memStore{
		users:         make(map[string]*models.User),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string]*models.Message),
		clock:         time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		lastSeen:      make(map[string]time.Time),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("get user: %w", models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) UpdateLastSeen(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[userID] = at
	if u, ok := s.users[userID]; ok {
		u.LastSeen = &at
	}
	return nil
}

func (s *memStore) LastSeen(userID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastSeen[userID]
	return at, ok
}

func (s *memStore) FindConversationBetween(_ context.Context, a, b string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[models.PairKey(a, b)]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (s *memStore) CreateConversation(_ context.Context, sender, receiver string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.PairKey(sender, receiver)
	if conv, ok := s.conversations[key]; ok {
		cp := *conv
		return &cp, nil
	}
	now := s.tick()
	conv := &models.Conversation{
		ID:         uuid.New().String(),
		Sender:     sender,
		Receiver:   receiver,
		PairKey:    key,
		MessageIDs: pq.StringArray{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.conversations[key] = conv
	cp := *conv
	return &cp, nil
}

func (s *memStore) byID(conversationID string) *models.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == conversationID {
			return conv
		}
	}
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, conversationID string, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.byID(conversationID)
	if conv == nil {
		return nil, fmt.Errorf("append message: %w", models.ErrNotFound)
	}
	if err := msg.BeforeCreate(nil); err != nil {
		return nil, err
	}
	now := s.tick()
	msg.ConversationID = conversationID
	msg.CreatedAt, msg.UpdatedAt = now, now
	stored := *msg
	s.messages[msg.ID] = &stored
	conv.MessageIDs = append(conv.MessageIDs, msg.ID)
	conv.UpdatedAt = now
	return msg, nil
}

func (s *memStore) MarkMessagesSeen(_ context.Context, conversationID, byUserID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID && msg.MsgByUserID == byUserID && !msg.Seen {
			msg.Seen = true
			msg.Status = models.StatusSeen
			n++
		}
	}
	return n, nil
}

func (s *memStore) messagesOf(conv *models.Conversation) []models.Message {
	out := make([]models.Message, 0, len(conv.MessageIDs))
	for _, id := range conv.MessageIDs {
		out = append(out, *s.messages[id])
	}
	return out
}

func (s *memStore) GetConversationMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.byID(conversationID)
	if conv == nil {
		return nil, nil
	}
	return s.messagesOf(conv), nil
}

func (s *memStore) ListConversationsForUser(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, conv := range s.conversations {
		if !conv.Involves(userID) {
			continue
		}
		cp := *conv
		cp.Messages = s.messagesOf(conv)
		cp.SenderUser = s.users[conv.Sender]
		cp.ReceiverUser = s.users[conv.Receiver]
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// conversationCount reports how many conversations exist in total.
func (s *memStore) conversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
