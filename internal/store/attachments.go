package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kbase/internal/models"
)

const attachmentColumns = "id, article_id, original_name, stored_name, size_bytes, media_type, created_at"

// CreateAttachment inserts one ledger row. The owning article is re-checked
// inside the same transaction, so an article deleted between the caller's
// validation and this insert surfaces as ErrArticleNotFound rather than a
// bare constraint failure.
func (s *Store) CreateAttachment(ctx context.Context, attachment *models.Attachment) (err error) {
	if attachment == nil {
		return fmt.Errorf("attachment is required")
	}
	if strings.TrimSpace(attachment.ArticleID) == "" {
		return fmt.Errorf("article id is required")
	}
	if strings.TrimSpace(attachment.StoredName) == "" {
		return fmt.Errorf("stored name is required")
	}
	if attachment.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}

	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
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
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM articles WHERE id = ? LIMIT 1", attachment.ArticleID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrArticleNotFound
	}
	if err != nil {
		return err
	}

	if strings.TrimSpace(attachment.ID) == "" {
		generated, genErr := GenerateAttachmentID(func(id string) (bool, error) {
			return attachmentIDExistsTx(ctx, tx, id)
		})
		if genErr != nil {
			return genErr
		}
		attachment.ID = generated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attachments (id, article_id, original_name, stored_name, size_bytes, media_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, attachment.ID, attachment.ArticleID, attachment.OriginalName, attachment.StoredName,
		attachment.SizeBytes, nullIfEmpty(attachment.MediaType), dbFormatTime(attachment.CreatedAt))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetAttachment returns one attachment by id, nil when absent.
func (s *Store) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, strings.TrimSpace(id))
	return scanAttachment(row)
}

// ListAttachmentsByArticle lists attachments for one article in creation order.
func (s *Store) ListAttachmentsByArticle(ctx context.Context, articleID string) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments
		WHERE article_id = ?
		ORDER BY created_at ASC, id ASC
	`, strings.TrimSpace(articleID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAttachments(rows)
}

// DeleteAttachment removes one ledger row and returns the removed record so
// the caller can free the stored blob. It returns nil when the row was
// already gone: under concurrent deletes of the same id, exactly one caller
// observes the record.
func (s *Store) DeleteAttachment(ctx context.Context, id string) (_ *models.Attachment, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("attachment id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	attachment, err := scanAttachment(row)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		return nil, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachmentsByArticle removes every ledger row of one article and
// returns all removed records in creation order, so the article-deletion
// cascade can free every stored blob.
func (s *Store) DeleteAttachmentsByArticle(ctx context.Context, articleID string) (_ []models.Attachment, err error) {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return nil, fmt.Errorf("article id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments
		WHERE article_id = ?
		ORDER BY created_at ASC, id ASC
	`, articleID)
	if err != nil {
		return nil, err
	}
	removed, err := collectAttachments(rows)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM attachments WHERE article_id = ?", articleID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func attachmentIDExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM attachments WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func collectAttachments(rows *sql.Rows) ([]models.Attachment, error) {
	defer rows.Close()

	attachments := []models.Attachment{}
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		if attachment == nil {
			continue
		}
		attachments = append(attachments, *attachment)
	}
	return attachments, rows.Err()
}

func scanAttachment(scanner interface {
	Scan(dest ...any) error
}) (*models.Attachment, error) {
	attachment := models.Attachment{}
	var mediaType sql.NullString
	var createdAt string

	err := scanner.Scan(&attachment.ID, &attachment.ArticleID, &attachment.OriginalName,
		&attachment.StoredName, &attachment.SizeBytes, &mediaType, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	attachment.MediaType = mediaType.String
	if attachment.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	return &attachment, nil
}
