package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatsync/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the conversation store used by the chat hub.
type Storage interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, userID string, at time.Time) error

	FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, sender, receiver string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, msg *models.Message) (*models.Message, error)
	MarkMessagesSeen(ctx context.Context, conversationID, byUserID string) (int64, error)
	GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor. rdb may be nil when the Redis relay is disabled.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates the chat tables.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{})
}

// Ping checks that the database and, when configured, Redis are reachable.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return classify("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w: %w", models.ErrStorageUnavailable, err)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w: %w", models.ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, classify("get user", err)
	}
	return &user, nil
}

// SaveUser inserts or updates a profile.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return classify("save user", s.DB.WithContext(ctx).Save(user).Error)
}

func (s *Service) UpdateLastSeen(ctx context.Context, userID string, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_seen", at)
	if res.Error != nil {
		return classify("update last seen", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update last seen: %w", models.ErrNotFound)
	}
	return nil
}

// FindConversationBetween returns the conversation for the pair in either
// order, or nil when the two users have never talked.
func (s *Service) FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).Where("pair_key = ?", models.PairKey(userA, userB)).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find conversation", err)
	}
	return &conv, nil
}

// CreateConversation inserts the conversation unless one already exists for
// the pair, and returns whichever row won.
func (s *Service) CreateConversation(ctx context.Context, sender, receiver string) (*models.Conversation, error) {
	key := models.PairKey(sender, receiver)
	conv := &models.Conversation{
		Sender:     sender,
		Receiver:   receiver,
		PairKey:    key,
		MessageIDs: pq.StringArray{},
	}

	db := s.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_key"}},
		DoNothing: true,
	}).Create(conv).Error
	if err != nil {
		return nil, classify("create conversation", err)
	}

	var stored models.Conversation
	if err := db.Where("pair_key = ?", key).First(&stored).Error; err != nil {
		return nil, classify("create conversation", err)
	}
	return &stored, nil
}

// AppendMessage persists msg and appends its id to the conversation in one
// transaction.
func (s *Service) AppendMessage(ctx context.Context, conversationID string, msg *models.Message) (*models.Message, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg.ConversationID = conversationID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		// Same clock as the message, so the sidebar order and the thread agree.
		res := tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"message_ids": gorm.Expr("array_append(message_ids, ?)", msg.ID),
				"updated_at":  msg.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, classify("append message", err)
	}
	return msg, nil
}

// MarkMessagesSeen flags every unseen message written by byUserID in the
// conversation and returns how many rows changed.
func (s *Service) MarkMessagesSeen(ctx context.Context, conversationID, byUserID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND msg_by_user_id = ? AND seen = ?", conversationID, byUserID, false).
		Updates(map[string]interface{}{
			"seen":   true,
			"status": models.StatusSeen,
		})
	if res.Error != nil {
		return 0, classify("mark seen", res.Error)
	}
	return res.RowsAffected, nil
}

// GetConversationMessages returns the thread in append order, which is the
// order of the conversation's message_ids.
func (s *Service) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("array_position(conversations.message_ids, messages.id), messages.created_at").
		Find(&msgs).Error
	if err != nil {
		return nil, classify("list messages", err)
	}
	return msgs, nil
}

// ListConversationsForUser returns the user's conversations, most recently
// updated first, with messages and both participants loaded.
func (s *Service) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Where("sender = ? OR receiver = ?", userID, userID).
		Order("updated_at DESC").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("SenderUser").
		Preload("ReceiverUser").
		Find(&convs).Error
	if err != nil {
		return nil, classify("list conversations", err)
	}
	for i := range convs {
		convs[i].SortMessages()
	}
	return convs, nil
}
