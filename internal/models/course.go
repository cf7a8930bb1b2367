package models

import "time"

// Course is a catalog entry. Courses are plain per-request CRUD data and do
// not interact with the realtime core.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	PriceCents  int64     `gorm:"not null;default:0" json:"price_cents"`
	Currency    string    `gorm:"size:8;default:usd" json:"currency"`
	Published   bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
