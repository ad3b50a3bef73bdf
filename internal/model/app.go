package model

import "time"

// App is a registered application. Every API key belongs to exactly one app,
// and the app's library selection at issuance time determines what the key
// may access. The owner is fixed at creation and never changes.
type App struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Libraries   []Library `json:"libraries"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
