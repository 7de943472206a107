package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalDir stores uploads as flat files in one directory, each named by a
// generated UUID plus the original extension. Writes go to a temp file and
// are renamed into place, so a failed Put never leaves a partial file visible.
type LocalDir struct {
	root   string
	policy Policy
}

// NewLocalDir creates a local blob store rooted at root.
func NewLocalDir(root string, policy Policy) (*LocalDir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalDir{root: abs, policy: policy}, nil
}

// Policy returns the acceptance policy this store enforces.
func (d *LocalDir) Policy() Policy {
	if d == nil {
		return Policy{}
	}
	return d.policy
}

// Put streams bytes to a new uniquely named file. The policy is enforced
// here as well as by callers: extension before any write, the size ceiling
// during the copy so oversized streams abort with the temp file removed.
func (d *LocalDir) Put(ctx context.Context, r io.Reader, originalName string) (PutResult, error) {
	var zero PutResult
	if d == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := d.policy.CheckName(originalName); err != nil {
		return zero, err
	}

	storedName := uuid.NewString() + StoredExtension(originalName)

	tmp, err := os.CreateTemp(filepath.Join(d.root, "tmp"), "put-*")
	if err != nil {
		return zero, &IOError{Op: "put", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	src := r
	if d.policy.MaxSizeBytes > 0 {
		// One extra byte so an over-limit stream is distinguishable from an
		// exactly-at-limit one.
		src = io.LimitReader(r, d.policy.MaxSizeBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		cleanup()
		return zero, &IOError{Op: "put", Err: err}
	}
	if d.policy.MaxSizeBytes > 0 && n > d.policy.MaxSizeBytes {
		cleanup()
		return zero, &RejectedInputError{
			Constraint: ConstraintSize,
			Detail:     fmt.Sprintf("upload exceeds %d bytes", d.policy.MaxSizeBytes),
		}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, &IOError{Op: "put", Err: err}
	}

	dst := filepath.Join(d.root, storedName)
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, &IOError{Op: "put", Err: err}
	}

	return PutResult{StoredName: storedName, SizeBytes: n}, nil
}

// Open returns a reader and the byte size for one stored name.
func (d *LocalDir) Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error) {
	if d == nil {
		return nil, 0, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	path, err := d.pathFromName(storedName)
	if err != nil {
		return nil, 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, &IOError{Op: "open", Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, &IOError{Op: "open", Err: err}
	}
	return f, info.Size(), nil
}

// Delete removes one stored file. Missing files are not an error.
func (d *LocalDir) Delete(ctx context.Context, storedName string) error {
	if d == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.pathFromName(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "delete", Err: err}
	}
	return nil
}

func (d *LocalDir) pathFromName(storedName string) (string, error) {
	storedName = strings.TrimSpace(storedName)
	if storedName == "" {
		return "", fmt.Errorf("stored name is required")
	}
	// Stored names are flat: a single path element, never user-controlled.
	if storedName != filepath.Base(storedName) || strings.ContainsAny(storedName, `/\`) || strings.HasPrefix(storedName, ".") {
		return "", fmt.Errorf("invalid stored name")
	}
	return filepath.Join(d.root, storedName), nil
}

var _ BlobStore = (*LocalDir)(nil)
