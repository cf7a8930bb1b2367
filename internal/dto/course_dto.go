package dto

import (
	"time"

	"github.com/noah-isme/gema-chat-service/internal/models"
)

// CourseCreateRequest is the payload to add a catalog entry.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Published   bool   `json:"published"`
}

// CourseUpdateRequest updates an existing catalog entry.
type CourseUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,min=0"`
	Published   *bool   `json:"published"`
}

// CourseResponse describes a catalog entry returned by the API.
type CourseResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCourseResponse converts a course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		Currency:    model.Currency,
		Published:   model.Published,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts courses to DTOs.
func NewCourseResponseSlice(items []models.Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCourseResponse(item))
	}
	return out
}

// CheckoutCreateRequest starts a payment session for a course.
type CheckoutCreateRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

// CheckoutResponse carries the redirect URL produced by the payment gateway.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CompletionRequest is forwarded to the external completion service.
type CompletionRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=8000"`
}

// CompletionResponse carries the completion text back to the client.
type CompletionResponse struct {
	Text string `json:"text"`
}
