package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"kbase/internal/blobstore"
	"kbase/internal/models"
	"kbase/internal/store"
)

const fallbackMediaType = "application/octet-stream"

// AttachmentService coordinates the two stores behind an attachment: the
// ledger (SQLite rows) and the blob store (files on disk). The two cannot be
// mutated atomically together, so every operation keeps a fixed order — blob
// before ledger on attach, ledger before blob on detach — and compensates
// when the second step fails. That bounds every partial failure to an orphan
// blob; a ledger row pointing at a missing file can never be observed.
type AttachmentService struct {
	articles store.ArticleStore
	ledger   store.AttachmentStore
	blobs    blobstore.BlobStore
	policy   blobstore.Policy
	logger   *slog.Logger
}

// AttachInput carries caller-supplied upload metadata.
type AttachInput struct {
	OriginalName      string
	DeclaredMediaType string
}

// AttachmentContent describes an opened attachment stream.
type AttachmentContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(articles store.ArticleStore, ledger store.AttachmentStore, blobs blobstore.BlobStore, policy blobstore.Policy, logger *slog.Logger) *AttachmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentService{articles: articles, ledger: ledger, blobs: blobs, policy: policy, logger: logger}
}

// Attach stores an uploaded file and records its ledger entry for one
// article. On any failure after the blob write, the just-written blob is
// removed before the error is surfaced.
func (s *AttachmentService) Attach(ctx context.Context, articleID, requesterID string, content io.Reader, in AttachInput) (models.Attachment, error) {
	var zero models.Attachment
	if s == nil || s.articles == nil || s.ledger == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("attachment service is not configured"))
	}
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(in.OriginalName) == "" {
		return zero, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingRequired)
	}

	// Validating: ownership first, then the upload policy, all before any
	// mutating I/O.
	if err := s.authorizeArticle(ctx, articleID, requesterID); err != nil {
		return zero, err
	}
	mediaType := normalizeMediaType(in.DeclaredMediaType)
	if err := s.policy.Check(in.OriginalName, mediaType); err != nil {
		return zero, blobServiceError(err)
	}

	// BlobWriting.
	put, err := s.blobs.Put(ctx, content, in.OriginalName)
	if err != nil {
		return zero, blobServiceError(err)
	}

	// LedgerWriting. The article may have vanished since validation; the
	// ledger re-checks it transactionally. Whatever the failure, the blob
	// written above must not outlive it.
	attachment := &models.Attachment{
		ArticleID:    articleID,
		OriginalName: filepath.Base(strings.TrimSpace(in.OriginalName)),
		StoredName:   put.StoredName,
		SizeBytes:    put.SizeBytes,
		MediaType:    mediaType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledger.CreateAttachment(ctx, attachment); err != nil {
		s.compensateBlob(ctx, put.StoredName)
		if errors.Is(err, store.ErrArticleNotFound) {
			return zero, notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
		}
		return zero, storeFailure(err)
	}

	return *attachment, nil
}

// Detach removes one attachment. The ledger row goes first so the attachment
// is immediately invisible to readers; a blob-delete failure afterwards is
// logged and tolerated, never used to resurrect the row.
func (s *AttachmentService) Detach(ctx context.Context, attachmentID, requesterID string) error {
	if s == nil || s.articles == nil || s.ledger == nil || s.blobs == nil {
		return internalError(fmt.Errorf("attachment service is not configured"))
	}

	attachment, err := s.ledger.GetAttachment(ctx, attachmentID)
	if err != nil {
		return storeFailure(err)
	}
	if attachment == nil {
		return notFoundCode(fmt.Errorf("attachment not found"), ErrCodeAttachmentNotFound)
	}
	if err := s.authorizeArticle(ctx, attachment.ArticleID, requesterID); err != nil {
		return err
	}

	deleted, err := s.ledger.DeleteAttachment(ctx, attachmentID)
	if err != nil {
		return storeFailure(err)
	}
	if deleted == nil {
		// Lost a concurrent detach: the row is already gone and the winner
		// owns the blob cleanup.
		return notFoundCode(fmt.Errorf("attachment not found"), ErrCodeAttachmentNotFound)
	}

	if err := s.blobs.Delete(context.WithoutCancel(ctx), deleted.StoredName); err != nil {
		s.logger.Warn("blob delete failed after detach; leaving orphan blob",
			"attachment_id", deleted.ID, "stored_name", deleted.StoredName, "error", err)
	}
	return nil
}

// RemoveArticleAttachments is the article-deletion cascade: it drains the
// ledger for one article, then frees every stored blob, continuing past
// individual delete failures. Returns the number of attachments removed.
func (s *AttachmentService) RemoveArticleAttachments(ctx context.Context, articleID string) (int, error) {
	if s == nil || s.ledger == nil || s.blobs == nil {
		return 0, internalError(fmt.Errorf("attachment service is not configured"))
	}

	removed, err := s.ledger.DeleteAttachmentsByArticle(ctx, articleID)
	if err != nil {
		return 0, storeFailure(err)
	}

	cleanupCtx := context.WithoutCancel(ctx)
	failed := 0
	for _, attachment := range removed {
		if err := s.blobs.Delete(cleanupCtx, attachment.StoredName); err != nil {
			failed++
			s.logger.Warn("blob delete failed during article cascade",
				"article_id", articleID, "attachment_id", attachment.ID,
				"stored_name", attachment.StoredName, "error", err)
		}
	}
	if failed > 0 {
		s.logger.Warn("article cascade left orphan blobs", "article_id", articleID, "count", failed)
	}
	return len(removed), nil
}

// List returns one article's attachments in creation order.
func (s *AttachmentService) List(ctx context.Context, articleID string) ([]models.Attachment, error) {
	if s == nil || s.articles == nil || s.ledger == nil {
		return nil, internalError(fmt.Errorf("attachment service is not configured"))
	}
	if _, err := s.articles.GetArticleOwner(ctx, articleID); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			return nil, notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
		}
		return nil, storeFailure(err)
	}
	attachments, err := s.ledger.ListAttachmentsByArticle(ctx, articleID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return attachments, nil
}

// Get returns one attachment record by id.
func (s *AttachmentService) Get(ctx context.Context, attachmentID string) (models.Attachment, error) {
	var zero models.Attachment
	if s == nil || s.ledger == nil {
		return zero, internalError(fmt.Errorf("attachment service is not configured"))
	}
	attachment, err := s.ledger.GetAttachment(ctx, attachmentID)
	if err != nil {
		return zero, storeFailure(err)
	}
	if attachment == nil {
		return zero, notFoundCode(fmt.Errorf("attachment not found"), ErrCodeAttachmentNotFound)
	}
	return *attachment, nil
}

// OpenContent opens the stored bytes for one attachment.
func (s *AttachmentService) OpenContent(ctx context.Context, attachmentID string) (*AttachmentContent, error) {
	if s == nil || s.ledger == nil || s.blobs == nil {
		return nil, internalError(fmt.Errorf("attachment service is not configured"))
	}

	attachment, err := s.ledger.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if attachment == nil {
		return nil, notFoundCode(fmt.Errorf("attachment not found"), ErrCodeAttachmentNotFound)
	}

	rc, size, err := s.blobs.Open(ctx, attachment.StoredName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// A live ledger row must reference an existing blob; treat a
			// miss as store corruption worth logging loudly.
			s.logger.Error("ledger row references missing blob",
				"attachment_id", attachment.ID, "stored_name", attachment.StoredName)
		}
		return nil, blobServiceError(err)
	}

	mediaType := strings.TrimSpace(attachment.MediaType)
	if mediaType == "" {
		mediaType = fallbackMediaType
	}
	filename := strings.TrimSpace(attachment.OriginalName)
	if filename == "" {
		filename = attachment.ID
	}
	return &AttachmentContent{Reader: rc, SizeBytes: size, MediaType: mediaType, Filename: filename}, nil
}

func (s *AttachmentService) authorizeArticle(ctx context.Context, articleID, requesterID string) error {
	if strings.TrimSpace(requesterID) == "" {
		return unauthorized(fmt.Errorf("authentication required"))
	}
	ownerID, err := s.articles.GetArticleOwner(ctx, articleID)
	if err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			return notFoundCode(fmt.Errorf("article not found"), ErrCodeArticleNotFound)
		}
		return storeFailure(err)
	}
	if ownerID != requesterID {
		return forbidden(fmt.Errorf("requester does not own the article"))
	}
	return nil
}

// compensateBlob removes a blob whose ledger write failed. It runs detached
// from the caller's cancellation: compensation is not itself cancellable.
func (s *AttachmentService) compensateBlob(ctx context.Context, storedName string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), storedName); err != nil {
		s.logger.Error("compensating blob delete failed; orphan blob left behind",
			"stored_name", storedName, "error", err)
	}
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parsed))
}
