package api

import "kbase/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegisterRequest creates one user account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest opens one session.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse describes the authenticated caller.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
}

// ArticleCreateRequest creates one article.
type ArticleCreateRequest struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ArticleUpdateRequest overwrites one article's mutable fields.
type ArticleUpdateRequest struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ArticleListResponse wraps an article listing.
type ArticleListResponse struct {
	Articles []models.Article `json:"articles"`
	Count    int              `json:"count"`
}

// AttachmentListResponse wraps an attachment listing.
type AttachmentListResponse struct {
	Attachments []models.Attachment `json:"attachments"`
	Count       int                 `json:"count"`
}

// InfoResponse reports server configuration and counts.
type InfoResponse struct {
	Version       string `json:"version"`
	DBPath        string `json:"db_path"`
	UploadsDir    string `json:"uploads_dir"`
	SchemaVersion int    `json:"schema_version"`
	UserCount     int    `json:"user_count"`
	ArticleCount  int    `json:"article_count"`
	AttachCount   int    `json:"attachment_count"`
}
