package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kbase/internal/models"
)

const articleColumns = "a.id, a.title, a.body, a.author_id, u.username, a.category, a.tags, a.created_at, a.updated_at"

// ArticleFilter narrows ListArticles results.
type ArticleFilter struct {
	// Search matches title, body, or tags, case-insensitively.
	Search string
	// Category matches exactly.
	Category string
	// AuthorID restricts to one author.
	AuthorID string
}

// CreateArticle inserts one article row, verifying inside the same
// transaction that the author still exists.
func (s *Store) CreateArticle(ctx context.Context, article *models.Article) (err error) {
	if article == nil {
		return fmt.Errorf("article is required")
	}
	if strings.TrimSpace(article.AuthorID) == "" {
		return fmt.Errorf("author id is required")
	}

	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = article.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? AND disabled = 0 LIMIT 1", article.AuthorID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if strings.TrimSpace(article.ID) == "" {
		generated, genErr := GenerateArticleID(func(id string) (bool, error) {
			return articleIDExistsTx(ctx, tx, id)
		})
		if genErr != nil {
			return genErr
		}
		article.ID = generated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, title, body, author_id, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, article.ID, article.Title, article.Body, article.AuthorID,
		nullIfEmpty(article.Category), nullIfEmpty(joinTags(article.Tags)),
		dbFormatTime(article.CreatedAt), dbFormatTime(article.UpdatedAt))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetArticle returns one article with the author's username joined in,
// nil when absent.
func (s *Store) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		JOIN users u ON u.id = a.author_id
		WHERE a.id = ?
	`, strings.TrimSpace(id))
	return scanArticle(row)
}

// GetArticleOwner resolves an article id to its owner's user id.
func (s *Store) GetArticleOwner(ctx context.Context, id string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx, "SELECT author_id FROM articles WHERE id = ? LIMIT 1", strings.TrimSpace(id)).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", ErrArticleNotFound
	}
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

// ListArticles returns articles matching the filter, newest first.
func (s *Store) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles a
		JOIN users u ON u.id = a.author_id
	`
	conditions := []string{}
	args := []any{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		conditions = append(conditions, `(a.title LIKE ? ESCAPE '\' OR a.body LIKE ? ESCAPE '\' OR a.tags LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		conditions = append(conditions, "a.category = ?")
		args = append(args, category)
	}
	if authorID := strings.TrimSpace(filter.AuthorID); authorID != "" {
		conditions = append(conditions, "a.author_id = ?")
		args = append(args, authorID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		if article == nil {
			continue
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

// UpdateArticle overwrites one article's mutable fields.
// Ownership is the caller's responsibility.
func (s *Store) UpdateArticle(ctx context.Context, article *models.Article) error {
	if article == nil {
		return fmt.Errorf("article is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE articles SET title = ?, body = ?, category = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, article.Title, article.Body, nullIfEmpty(article.Category), nullIfEmpty(joinTags(article.Tags)),
		dbFormatTime(time.Now().UTC()), article.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// DeleteArticle removes one article row. The schema-level cascade removes any
// remaining attachment rows; callers wanting blob cleanup must drain the
// ledger first via DeleteAttachmentsByArticle.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func articleIDExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM articles WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanArticle(scanner interface {
	Scan(dest ...any) error
}) (*models.Article, error) {
	article := models.Article{}
	var category, tags sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&article.ID, &article.Title, &article.Body, &article.AuthorID,
		&article.AuthorName, &category, &tags, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	article.Category = category.String
	article.Tags = splitTags(tags.String)

	if article.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if article.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &article, nil
}

func joinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return strings.Join(out, ",")
}

func splitTags(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}
