package blobstore

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	ConstraintSize      = "max_size_bytes"
	ConstraintExtension = "extension"
	ConstraintMediaType = "media_type"
)

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,16}$`)

// Policy is the upload acceptance policy: a size ceiling plus allow-lists for
// file extensions and media types. Empty allow-lists accept anything.
type Policy struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
	AllowedMediaTypes []string
}

// Check validates an upload's name and declared media type before any write.
func (p Policy) Check(originalName, mediaType string) error {
	if err := p.CheckName(originalName); err != nil {
		return err
	}
	return p.CheckMediaType(mediaType)
}

// CheckName validates the original filename's extension against the allow-list.
func (p Policy) CheckName(originalName string) error {
	if len(p.AllowedExtensions) == 0 {
		return nil
	}
	ext := strings.TrimPrefix(StoredExtension(originalName), ".")
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(strings.TrimSpace(allowed), ".")) {
			return nil
		}
	}
	return &RejectedInputError{
		Constraint: ConstraintExtension,
		Detail:     fmt.Sprintf("extension %q is not allowed", ext),
	}
}

// CheckMediaType validates a declared media type against the allow-list.
// Blank media types pass; the declared type is advisory.
func (p Policy) CheckMediaType(mediaType string) error {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" || len(p.AllowedMediaTypes) == 0 {
		return nil
	}
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return &RejectedInputError{
			Constraint: ConstraintMediaType,
			Detail:     fmt.Sprintf("invalid media type %q", mediaType),
		}
	}
	parsed = strings.ToLower(strings.TrimSpace(parsed))
	for _, allowed := range p.AllowedMediaTypes {
		if parsed == strings.ToLower(strings.TrimSpace(allowed)) {
			return nil
		}
	}
	return &RejectedInputError{
		Constraint: ConstraintMediaType,
		Detail:     fmt.Sprintf("media type %q is not allowed", parsed),
	}
}

// CheckSize validates an already-known byte count against the ceiling.
func (p Policy) CheckSize(sizeBytes int64) error {
	if p.MaxSizeBytes > 0 && sizeBytes > p.MaxSizeBytes {
		return &RejectedInputError{
			Constraint: ConstraintSize,
			Detail:     fmt.Sprintf("upload exceeds %d bytes", p.MaxSizeBytes),
		}
	}
	return nil
}

// StoredExtension returns the lowercased extension of a user-supplied name,
// or "" when the extension is absent or contains unexpected characters.
// The returned value is safe to append to a generated stored name.
func StoredExtension(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}
