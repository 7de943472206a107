package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound reports a stored name with no corresponding blob.
var ErrNotFound = errors.New("blob not found")

// PutResult describes one persisted upload.
type PutResult struct {
	StoredName string
	SizeBytes  int64
}

// BlobStore is the byte-storage abstraction used by the attachment lifecycle.
//
// Delete is idempotent: removing a stored name that does not exist is not an
// error, so cleanup can be retried after a crash.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, originalName string) (PutResult, error)
	Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, storedName string) error
}

// RejectedInputError reports an upload violating the configured policy.
// Constraint names the violated rule.
type RejectedInputError struct {
	Constraint string
	Detail     string
}

func (e *RejectedInputError) Error() string {
	return fmt.Sprintf("rejected input (%s): %s", e.Constraint, e.Detail)
}

// IOError wraps a filesystem failure during a blob operation.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
