package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testBlobStore(t *testing.T, policy Policy) (*LocalDir, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewLocalDir(root, policy)
	if err != nil {
		t.Fatalf("new local dir: %v", err)
	}
	return store, root
}

// blobFiles lists non-temp files under the store root.
func blobFiles(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func tmpFiles(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestPutOpenRoundtrip(t *testing.T) {
	store, _ := testBlobStore(t, Policy{})
	ctx := context.Background()

	payload := []byte("attachment payload bytes")
	put, err := store.Put(ctx, bytes.NewReader(payload), "report.PDF")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if put.SizeBytes != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), put.SizeBytes)
	}
	if !strings.HasSuffix(put.StoredName, ".pdf") {
		t.Fatalf("expected lowercased .pdf suffix, got %s", put.StoredName)
	}

	rc, size, err := store.Open(ctx, put.StoredName)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch after roundtrip")
	}
}

func TestPutGeneratesUniqueNames(t *testing.T) {
	store, _ := testBlobStore(t, Policy{})
	ctx := context.Background()

	first, err := store.Put(ctx, strings.NewReader("one"), "same.txt")
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	second, err := store.Put(ctx, strings.NewReader("two"), "same.txt")
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if first.StoredName == second.StoredName {
		t.Fatalf("expected distinct stored names, both %s", first.StoredName)
	}
}

func TestPutRejectsDisallowedExtensionBeforeWriting(t *testing.T) {
	store, root := testBlobStore(t, Policy{AllowedExtensions: []string{"txt"}})

	_, err := store.Put(context.Background(), strings.NewReader("#!/bin/sh"), "script.sh")
	var rejected *RejectedInputError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedInputError, got %v", err)
	}
	if rejected.Constraint != ConstraintExtension {
		t.Fatalf("expected extension constraint, got %s", rejected.Constraint)
	}
	if files := blobFiles(t, root); len(files) != 0 {
		t.Fatalf("expected no files written, found %v", files)
	}
	if files := tmpFiles(t, root); len(files) != 0 {
		t.Fatalf("expected no temp files, found %v", files)
	}
}

func TestPutEnforcesSizeLimitMidStream(t *testing.T) {
	store, root := testBlobStore(t, Policy{MaxSizeBytes: 16})

	_, err := store.Put(context.Background(), bytes.NewReader(make([]byte, 64)), "big.bin")
	var rejected *RejectedInputError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedInputError, got %v", err)
	}
	if rejected.Constraint != ConstraintSize {
		t.Fatalf("expected size constraint, got %s", rejected.Constraint)
	}
	if files := blobFiles(t, root); len(files) != 0 {
		t.Fatalf("expected no files written, found %v", files)
	}
	if files := tmpFiles(t, root); len(files) != 0 {
		t.Fatalf("expected temp file cleaned up, found %v", files)
	}
}

func TestPutAcceptsExactlyAtLimit(t *testing.T) {
	store, _ := testBlobStore(t, Policy{MaxSizeBytes: 16})

	put, err := store.Put(context.Background(), bytes.NewReader(make([]byte, 16)), "fits.bin")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if put.SizeBytes != 16 {
		t.Fatalf("expected 16 bytes, got %d", put.SizeBytes)
	}
}

func TestOpenMissingBlob(t *testing.T) {
	store, _ := testBlobStore(t, Policy{})

	_, _, err := store.Open(context.Background(), "0000.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := testBlobStore(t, Policy{})
	ctx := context.Background()

	put, err := store.Put(ctx, strings.NewReader("bytes"), "doc.txt")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, put.StoredName); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, put.StoredName); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, _, err := store.Open(ctx, put.StoredName); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoredNamesRejectTraversal(t *testing.T) {
	store, _ := testBlobStore(t, Policy{})
	ctx := context.Background()

	for _, name := range []string{"../escape.txt", "a/b.txt", `a\b.txt`, ".hidden", ""} {
		if _, _, err := store.Open(ctx, name); err == nil {
			t.Fatalf("expected open %q to fail", name)
		}
		if err := store.Delete(ctx, name); err == nil {
			t.Fatalf("expected delete %q to fail", name)
		}
	}
}

func TestStoredExtension(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.PDF", ".pdf"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{"trailingdot.", ""},
		{"weird.$$", ""},
		{"dir/name.txt", ".txt"},
	}
	for _, tc := range cases {
		if got := StoredExtension(tc.in); got != tc.want {
			t.Fatalf("StoredExtension(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
