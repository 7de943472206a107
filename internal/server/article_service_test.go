package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"kbase/internal/blobstore"
	"kbase/internal/models"
	"kbase/internal/store"
)

func newArticleServiceForTest(t *testing.T) (*ArticleService, *AttachmentService, *store.Store, string) {
	t.Helper()
	st := testStoreForServer(t)
	blobs, root := testBlobDir(t, blobstore.Policy{})
	attachments := NewAttachmentService(st, st, blobs, blobstore.Policy{}, slog.Default())
	return NewArticleService(st, attachments), attachments, st, root
}

func TestArticleCreateValidation(t *testing.T) {
	svc, _, st, _ := newArticleServiceForTest(t)
	ctx := context.Background()
	userID, _ := createUserAndArticle(t, st)

	_, err := svc.Create(ctx, userID, ArticleInput{Title: "", Body: "body"})
	if httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected HTTP 400 for missing title, got %d (%v)", httpStatusFromError(err), err)
	}
	_, err = svc.Create(ctx, userID, ArticleInput{Title: "t", Body: ""})
	if httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected HTTP 400 for missing body, got %d (%v)", httpStatusFromError(err), err)
	}
	_, err = svc.Create(ctx, "us-zzzzzz", ArticleInput{Title: "t", Body: "b"})
	if httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected HTTP 404 for unknown author, got %d (%v)", httpStatusFromError(err), err)
	}

	article, err := svc.Create(ctx, userID, ArticleInput{
		Title: "  Padded  ",
		Body:  "content",
		Tags:  []string{"Go", "go", " sqlite "},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if article.Title != "Padded" {
		t.Fatalf("expected trimmed title, got %q", article.Title)
	}
	if len(article.Tags) != 2 {
		t.Fatalf("expected deduplicated tags, got %v", article.Tags)
	}
}

func TestArticleUpdateOwnership(t *testing.T) {
	svc, _, st, _ := newArticleServiceForTest(t)
	ctx := context.Background()
	ownerID, articleID := createUserAndArticle(t, st)

	other := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	if err := st.CreateUser(ctx, other); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := svc.Update(ctx, articleID, other.ID, ArticleInput{Title: "hijacked"})
	if httpStatusFromError(err) != http.StatusForbidden {
		t.Fatalf("expected HTTP 403, got %d (%v)", httpStatusFromError(err), err)
	}

	updated, err := svc.Update(ctx, articleID, ownerID, ArticleInput{Title: "Renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("expected renamed article, got %q", updated.Title)
	}
}

func TestArticleGetIncludesAttachments(t *testing.T) {
	svc, attachments, st, _ := newArticleServiceForTest(t)
	ctx := context.Background()
	userID, articleID := createUserAndArticle(t, st)

	if _, err := attachments.Attach(ctx, articleID, userID, strings.NewReader("a"), AttachInput{OriginalName: "a.txt"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := attachments.Attach(ctx, articleID, userID, strings.NewReader("b"), AttachInput{OriginalName: "b.txt"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	article, err := svc.Get(ctx, articleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(article.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(article.Attachments))
	}
}

func TestArticleDeleteCascadesBlobsAndRows(t *testing.T) {
	svc, attachments, st, root := newArticleServiceForTest(t)
	ctx := context.Background()
	userID, articleID := createUserAndArticle(t, st)

	ids := []string{}
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		attachment, err := attachments.Attach(ctx, articleID, userID, strings.NewReader(name), AttachInput{OriginalName: name})
		if err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
		ids = append(ids, attachment.ID)
	}

	if err := svc.Delete(ctx, articleID, userID); err != nil {
		t.Fatalf("delete article: %v", err)
	}

	if got, err := st.GetArticle(ctx, articleID); err != nil || got != nil {
		t.Fatalf("expected article gone, got %v err %v", got, err)
	}
	for _, id := range ids {
		if row, err := st.GetAttachment(ctx, id); err != nil || row != nil {
			t.Fatalf("expected ledger row %s gone, got %v err %v", id, row, err)
		}
	}
	if files := storedBlobFiles(t, root); len(files) != 0 {
		t.Fatalf("expected all blobs removed, found %v", files)
	}
}

func TestArticleDeleteRequiresOwnership(t *testing.T) {
	svc, _, st, _ := newArticleServiceForTest(t)
	ctx := context.Background()
	_, articleID := createUserAndArticle(t, st)

	other := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	if err := st.CreateUser(ctx, other); err != nil {
		t.Fatalf("create user: %v", err)
	}

	err := svc.Delete(ctx, articleID, other.ID)
	if httpStatusFromError(err) != http.StatusForbidden {
		t.Fatalf("expected HTTP 403, got %d (%v)", httpStatusFromError(err), err)
	}
	if got, err := st.GetArticle(ctx, articleID); err != nil || got == nil {
		t.Fatalf("expected article to survive, got %v err %v", got, err)
	}
}
