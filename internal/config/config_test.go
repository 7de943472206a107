package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KBASE_CONFIG_DIR", t.TempDir())
	t.Setenv("KBASE_DB", "")
	t.Setenv("KBASE_API_URL", "")
	t.Setenv("KBASE_UPLOADS_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.Attachments.MaxUploadBytes != DefaultAttachmentMaxUploadBytes {
		t.Fatalf("expected default upload limit, got %d", cfg.Attachments.MaxUploadBytes)
	}
	if cfg.DBPath == "" || cfg.UploadsDir == "" {
		t.Fatalf("expected derived paths, got db=%q uploads=%q", cfg.DBPath, cfg.UploadsDir)
	}
	if len(cfg.Attachments.AllowedExtensions) == 0 {
		t.Fatal("expected default extension allow-list")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KBASE_CONFIG_DIR", dir)
	t.Setenv("KBASE_DB", filepath.Join(dir, "custom.db"))
	t.Setenv("KBASE_API_URL", "http://127.0.0.1:9999")
	t.Setenv("KBASE_UPLOADS_DIR", filepath.Join(dir, "blobs"))
	t.Setenv("KBASE_ATTACH_ALLOWED_EXTENSIONS", "PDF, .txt , pdf")
	t.Setenv("KBASE_ATTACH_MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9999" {
		t.Fatalf("expected env api url, got %q", cfg.APIURL)
	}
	if cfg.Attachments.MaxUploadBytes != 1024 {
		t.Fatalf("expected env upload limit, got %d", cfg.Attachments.MaxUploadBytes)
	}
	// Extensions are lowercased, trimmed of dots, deduplicated, sorted.
	if len(cfg.Attachments.AllowedExtensions) != 2 ||
		cfg.Attachments.AllowedExtensions[0] != "pdf" ||
		cfg.Attachments.AllowedExtensions[1] != "txt" {
		t.Fatalf("unexpected extensions: %v", cfg.Attachments.AllowedExtensions)
	}
}

func TestSetKeyRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)

	if err := SetKey(path, "api_url", "http://127.0.0.1:4444"); err != nil {
		t.Fatalf("set api_url: %v", err)
	}
	if err := SetKey(path, "attachments.max_upload_bytes", "2048"); err != nil {
		t.Fatalf("set max_upload_bytes: %v", err)
	}

	t.Setenv("KBASE_CONFIG_DIR", dir)
	t.Setenv("KBASE_API_URL", "")
	t.Setenv("KBASE_ATTACH_MAX_UPLOAD_BYTES", "")
	t.Setenv("KBASE_DB", "")
	t.Setenv("KBASE_UPLOADS_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:4444" {
		t.Fatalf("expected persisted api url, got %q", cfg.APIURL)
	}
	if cfg.Attachments.MaxUploadBytes != 2048 {
		t.Fatalf("expected persisted upload limit, got %d", cfg.Attachments.MaxUploadBytes)
	}
}

func TestSetKeyRejectsUnknownAndBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)

	if err := SetKey(path, "nope", "x"); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if err := SetKey(path, "attachments.max_upload_bytes", "-5"); err == nil {
		t.Fatal("expected non-positive limit to be rejected")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no file written on rejected set")
	}
}

func TestGetUnknownKey(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Get("nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
