package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kbase/internal/models"
)

func testAttachment(articleID, storedName string) *models.Attachment {
	return &models.Attachment{
		ArticleID:    articleID,
		OriginalName: "report.pdf",
		StoredName:   storedName,
		SizeBytes:    2048,
		MediaType:    "application/pdf",
	}
}

func TestCreateAndGetAttachment(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")

	attachment := testAttachment(articleID, "aaaa-1.pdf")
	if err := st.CreateAttachment(ctx, attachment); err != nil {
		t.Fatalf("create: %v", err)
	}
	if attachment.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := st.GetAttachment(ctx, attachment.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected attachment, got nil")
	}
	if got.ArticleID != articleID || got.StoredName != "aaaa-1.pdf" || got.SizeBytes != 2048 {
		t.Fatalf("unexpected attachment: %+v", got)
	}
}

func TestCreateAttachmentUnknownArticle(t *testing.T) {
	st := testStore(t)

	attachment := testAttachment("ar-zzzzzz", "aaaa-1.pdf")
	if err := st.CreateAttachment(context.Background(), attachment); err != ErrArticleNotFound {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestCreateAttachmentDuplicateStoredName(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")

	if err := st.CreateAttachment(ctx, testAttachment(articleID, "same.pdf")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.CreateAttachment(ctx, testAttachment(articleID, "same.pdf")); err == nil {
		t.Fatal("expected unique constraint error on stored_name")
	}
}

func TestListAttachmentsByArticleOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		attachment := testAttachment(articleID, fmt.Sprintf("blob-%d.pdf", i))
		attachment.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := st.CreateAttachment(ctx, attachment); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	got, err := st.ListAttachmentsByArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 attachments, got %d", len(got))
	}
	for i, attachment := range got {
		want := fmt.Sprintf("blob-%d.pdf", i)
		if attachment.StoredName != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, attachment.StoredName)
		}
	}
}

func TestDeleteAttachmentReturnsRecordOnce(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")

	attachment := testAttachment(articleID, "once.pdf")
	if err := st.CreateAttachment(ctx, attachment); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := st.DeleteAttachment(ctx, attachment.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted == nil {
		t.Fatal("expected deleted record")
	}
	if deleted.StoredName != "once.pdf" {
		t.Fatalf("expected stored name once.pdf, got %s", deleted.StoredName)
	}

	// Second delete finds nothing; only the first caller gets the record.
	again, err := st.DeleteAttachment(ctx, attachment.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nil on second delete, got %+v", again)
	}
}

func TestDeleteAttachmentsByArticle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")
	otherID := testArticle(t, st, alice, "Second")

	for i := 0; i < 3; i++ {
		if err := st.CreateAttachment(ctx, testAttachment(articleID, fmt.Sprintf("mine-%d.pdf", i))); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if err := st.CreateAttachment(ctx, testAttachment(otherID, "other.pdf")); err != nil {
		t.Fatalf("create other: %v", err)
	}

	removed, err := st.DeleteAttachmentsByArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed, got %d", len(removed))
	}

	remaining, err := st.ListAttachmentsByArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty ledger for article, got %d rows", len(remaining))
	}

	others, err := st.ListAttachmentsByArticle(ctx, otherID)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("expected other article untouched, got %d rows", len(others))
	}
}

func TestArticleDeleteCascadesLedgerRows(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "First")

	attachment := testAttachment(articleID, "cascade.pdf")
	if err := st.CreateAttachment(ctx, attachment); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteArticle(ctx, articleID); err != nil {
		t.Fatalf("delete article: %v", err)
	}

	got, err := st.GetAttachment(ctx, attachment.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected ledger row cascaded away, got %+v", got)
	}
}
