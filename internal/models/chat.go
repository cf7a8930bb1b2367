package models

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultRoom is the room assigned to chat messages that omit one.
const DefaultRoom = "General"

// Notification type tags. Every notification carries exactly one of these so
// delivery scoping can be changed per variant later without touching fan-out.
const (
	NotificationMessagePosted = "message-posted"
	NotificationUserJoined    = "user-joined"
	NotificationGeneric       = "generic"
)

// ChatMessage is a single chat payload persisted for a room. Rows are
// immutable once created; the auto-increment ID doubles as the storage order
// used for history replay.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Room      string    `gorm:"size:128;index;not null" json:"room"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Time      string    `gorm:"size:64" json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an activity record fanned out to connected clients. An
// empty UserID means broadcast scope: the notification targets every live
// connection rather than a single recipient.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`
	Type      string            `gorm:"size:64;default:generic" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
