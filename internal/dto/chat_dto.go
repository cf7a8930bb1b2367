package dto

import (
	"time"

	"github.com/noah-isme/gema-chat-service/internal/models"
)

// Websocket event discriminators shared by both directions of the protocol.
const (
	EventJoinRoom     = "join-room"
	EventChatMessage  = "chat-message"
	EventNotification = "notification"
	EventError        = "error"
)

// ClientEvent is the inbound websocket envelope. The Event field selects
// which payload field is meaningful.
type ClientEvent struct {
	Event   string           `json:"event" validate:"required,oneof=join-room chat-message"`
	Room    string           `json:"room,omitempty"`
	Message *ChatSendRequest `json:"message,omitempty"`
}

// ServerEvent is the outbound websocket envelope.
type ServerEvent struct {
	Event        string                `json:"event"`
	Message      *ChatMessageResponse  `json:"message,omitempty"`
	Notification *NotificationResponse `json:"notification,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// NewChatServerEvent wraps a chat message for delivery to room members.
func NewChatServerEvent(message ChatMessageResponse) ServerEvent {
	return ServerEvent{Event: EventChatMessage, Message: &message}
}

// NewNotificationServerEvent wraps a notification for delivery to all live connections.
func NewNotificationServerEvent(notification NotificationResponse) ServerEvent {
	return ServerEvent{Event: EventNotification, Notification: &notification}
}

// NewErrorServerEvent reports a rejected inbound event back to its sender.
func NewErrorServerEvent(err error) ServerEvent {
	return ServerEvent{Event: EventError, Error: err.Error()}
}

// ChatSendRequest is the payload clients send to post a chat message. Room is
// optional and defaults to models.DefaultRoom when omitted.
type ChatSendRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
	Text string `json:"text" validate:"required,min=1,max=4000"`
	Time string `json:"time" validate:"omitempty,max=64"`
	Room string `json:"room" validate:"omitempty,max=128"`
}

// ChatHistoryQuery filters the recent-messages endpoint.
type ChatHistoryQuery struct {
	Room  string `query:"room" validate:"required,min=1,max=128"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ChatMessageResponse is the serialized representation of a persisted chat
// message, used both for broadcast delivery and history replay.
type ChatMessageResponse struct {
	ID        uint      `json:"id"`
	Room      string    `json:"room"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Time      string    `json:"time,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        message.ID,
		Room:      message.Room,
		Name:      message.Name,
		Text:      message.Text,
		Time:      message.Time,
		CreatedAt: message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// NotificationCreateRequest describes the payload to create a notification.
// An empty UserID yields a broadcast-scope notification.
type NotificationCreateRequest struct {
	UserID   string            `json:"user_id" validate:"omitempty,max=64"`
	Type     string            `json:"type" validate:"required,max=64"`
	Message  string            `json:"message" validate:"required,min=1,max=2000"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
