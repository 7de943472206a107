package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kbase/internal/models"
	"kbase/internal/store"
)

const (
	maxArticleTitleLength    = 200
	maxArticleBodyLength     = 1 << 20
	maxArticleCategoryLength = 64
	maxArticleTags           = 16
	maxArticleTagLength      = 48
)

// ArticleService implements article CRUD on top of the store and delegates
// the delete cascade to the attachment coordinator.
type ArticleService struct {
	store       store.ArticleStore
	attachments *AttachmentService
}

// ArticleInput carries caller-supplied article fields.
type ArticleInput struct {
	Title    string
	Body     string
	Category string
	Tags     []string
}

// NewArticleService constructs an ArticleService.
func NewArticleService(st store.ArticleStore, attachments *AttachmentService) *ArticleService {
	return &ArticleService{store: st, attachments: attachments}
}

// Create validates and stores a new article owned by authorID.
func (s *ArticleService) Create(ctx context.Context, authorID string, in ArticleInput) (models.Article, error) {
	var zero models.Article
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("article service is not configured"))
	}
	article, err := buildArticle(authorID, in)
	if err != nil {
		return zero, err
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return zero, notFoundCode(fmt.Errorf("author not found"), ErrCodeUserNotFound)
		}
		return zero, storeFailure(err)
	}
	return *article, nil
}

// Get returns one article with its attachments.
func (s *ArticleService) Get(ctx context.Context, articleID string) (models.Article, error) {
	var zero models.Article
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("article service is not configured"))
	}
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return zero, storeFailure(err)
	}
	if article == nil {
		return zero, notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
	}
	if s.attachments != nil {
		attachments, err := s.attachments.ledger.ListAttachmentsByArticle(ctx, articleID)
		if err != nil {
			return zero, storeFailure(err)
		}
		article.Attachments = attachments
	}
	return *article, nil
}

// List returns articles matching the filter, newest first.
func (s *ArticleService) List(ctx context.Context, filter store.ArticleFilter) ([]models.Article, error) {
	if s == nil || s.store == nil {
		return nil, internalError(fmt.Errorf("article service is not configured"))
	}
	articles, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return articles, nil
}

// Update applies the given fields to an article owned by requesterID. Empty
// input fields leave the stored values unchanged.
func (s *ArticleService) Update(ctx context.Context, articleID, requesterID string, in ArticleInput) (models.Article, error) {
	var zero models.Article
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("article service is not configured"))
	}
	article, err := s.authorizedArticle(ctx, articleID, requesterID)
	if err != nil {
		return zero, err
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if len(title) > maxArticleTitleLength {
			return zero, badRequest(fmt.Errorf("title exceeds %d characters", maxArticleTitleLength))
		}
		article.Title = title
	}
	if body := strings.TrimSpace(in.Body); body != "" {
		if len(body) > maxArticleBodyLength {
			return zero, badRequest(fmt.Errorf("body exceeds %d bytes", maxArticleBodyLength))
		}
		article.Body = body
	}
	if category := strings.TrimSpace(in.Category); category != "" {
		if len(category) > maxArticleCategoryLength {
			return zero, badRequest(fmt.Errorf("category exceeds %d characters", maxArticleCategoryLength))
		}
		article.Category = category
	}
	if in.Tags != nil {
		tags, err := normalizeTags(in.Tags)
		if err != nil {
			return zero, err
		}
		article.Tags = tags
	}
	article.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateArticle(ctx, article); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			return zero, notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
		}
		return zero, storeFailure(err)
	}
	return *article, nil
}

// Delete removes an article owned by requesterID, cascading over its
// attachments first so no ledger row survives its article.
func (s *ArticleService) Delete(ctx context.Context, articleID, requesterID string) error {
	if s == nil || s.store == nil || s.attachments == nil {
		return internalError(fmt.Errorf("article service is not configured"))
	}
	if _, err := s.authorizedArticle(ctx, articleID, requesterID); err != nil {
		return err
	}
	if _, err := s.attachments.RemoveArticleAttachments(ctx, articleID); err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, articleID); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			return notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
		}
		return storeFailure(err)
	}
	return nil
}

func (s *ArticleService) authorizedArticle(ctx context.Context, articleID, requesterID string) (*models.Article, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, unauthorized(fmt.Errorf("authentication required"))
	}
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if article == nil {
		return nil, notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
	}
	if article.AuthorID != requesterID {
		return nil, forbidden(fmt.Errorf("requester does not own the article"))
	}
	return article, nil
}

func buildArticle(authorID string, in ArticleInput) (*models.Article, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequestCode(fmt.Errorf("title is required"), ErrCodeMissingRequired)
	}
	if len(title) > maxArticleTitleLength {
		return nil, badRequest(fmt.Errorf("title exceeds %d characters", maxArticleTitleLength))
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, badRequestCode(fmt.Errorf("body is required"), ErrCodeMissingRequired)
	}
	if len(body) > maxArticleBodyLength {
		return nil, badRequest(fmt.Errorf("body exceeds %d bytes", maxArticleBodyLength))
	}
	category := strings.TrimSpace(in.Category)
	if len(category) > maxArticleCategoryLength {
		return nil, badRequest(fmt.Errorf("category exceeds %d characters", maxArticleCategoryLength))
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &models.Article{
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		Category:  category,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func normalizeTags(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > maxArticleTags {
		return nil, badRequest(fmt.Errorf("at most %d tags allowed", maxArticleTags))
	}
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxArticleTagLength {
			return nil, badRequest(fmt.Errorf("tag exceeds %d characters", maxArticleTagLength))
		}
		if strings.Contains(tag, ",") {
			return nil, badRequest(fmt.Errorf("tag must not contain commas"))
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags, nil
}
