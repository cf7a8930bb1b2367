package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-chat-service/internal/models"
)

// DefaultHistoryLimit is the number of messages replayed when a client first
// queries a room.
const DefaultHistoryLimit = 50

// MessageRepository persists chat messages for history replay.
type MessageRepository interface {
	Append(ctx context.Context, message *models.ChatMessage) error
	Recent(ctx context.Context, room string, limit int) ([]models.ChatMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// Recent returns the newest messages for a room in ascending storage order:
// when more than limit exist, the newest limit are returned chronologically.
func (r *messageRepository) Recent(ctx context.Context, room string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}

	var messages []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("room = ?", room).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
