package store

import (
	"context"
	"time"

	"kbase/internal/models"
)

// ArticleStore is the article persistence surface consumed by services.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	GetArticleOwner(ctx context.Context, id string) (string, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error)
	UpdateArticle(ctx context.Context, article *models.Article) error
	DeleteArticle(ctx context.Context, id string) error
}

// AttachmentStore is the attachment ledger: the authoritative mapping from
// attachment identity to owning article and stored blob name.
//
// This is intentionally separate from ArticleStore to keep article and
// attachment responsibilities decoupled.
type AttachmentStore interface {
	CreateAttachment(ctx context.Context, attachment *models.Attachment) error
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)
	ListAttachmentsByArticle(ctx context.Context, articleID string) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) (*models.Attachment, error)
	DeleteAttachmentsByArticle(ctx context.Context, articleID string) ([]models.Attachment, error)
}

// AuthStore is the user and session persistence surface.
type AuthStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserDisabled(ctx context.Context, id string, disabled bool) error

	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, now time.Time) error
}

var (
	_ ArticleStore    = (*Store)(nil)
	_ AttachmentStore = (*Store)(nil)
	_ AuthStore       = (*Store)(nil)
)
