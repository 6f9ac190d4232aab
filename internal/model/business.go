package model

import "time"

// Business is the read-only surface of the directory's business records.
// The CRUD side of the portal owns these rows; the analytics core only needs
// slug resolution and display fields.
type Business struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
