package models

import "time"

// Attachment is the ledger record linking one stored blob to its owning
// article. The stored name is system-generated and unique; the original name
// is kept for display and downloads only. Attachments are immutable once
// stored: replacing a file means detach then attach.
type Attachment struct {
	ID           string    `json:"id"`
	ArticleID    string    `json:"article_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	SizeBytes    int64     `json:"size_bytes"`
	MediaType    string    `json:"media_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
