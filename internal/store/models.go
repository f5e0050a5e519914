package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	DisplayName  *string   `json:"display_name,omitempty"` // Nullable
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"` // Using UUID for external ID
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"` // "user" or "model"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type KnowledgeEntry struct {
	ID        string    `json:"id"` // Using UUID for external ID
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
