package models

import "time"

// Article is one knowledge-base entry. It is owned by its author; only the
// owner may update or delete it, and only the owner may attach files to it.
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Attachments is populated on single-article reads only.
	Attachments []Attachment `json:"attachments,omitempty"`
}
