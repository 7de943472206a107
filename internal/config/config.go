package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7395"
	DefaultDBFileName = ".kbase.db"
	DefaultLogLevel   = "info"

	DefaultAttachmentMaxUploadBytes  int64 = 10 * 1024 * 1024
	DefaultAttachmentMultipartMemory int64 = 8 * 1024 * 1024

	configFileName  = ".kbase.toml"
	configDirEnvKey = "KBASE_CONFIG_DIR"

	apiURLEnvKey     = "KBASE_API_URL"
	dbPathEnvKey     = "KBASE_DB"
	uploadsDirEnvKey = "KBASE_UPLOADS_DIR"

	attachmentAllowedExtensionsEnvKey = "KBASE_ATTACH_ALLOWED_EXTENSIONS"
	attachmentAllowedMediaTypesEnvKey = "KBASE_ATTACH_ALLOWED_MEDIA_TYPES"
	attachmentMaxUploadBytesEnvKey    = "KBASE_ATTACH_MAX_UPLOAD_BYTES"
)

// defaultAllowedExtensions is the stock upload allow-list.
var defaultAllowedExtensions = []string{"jpeg", "jpg", "png", "gif", "pdf", "doc", "docx", "txt", "md"}

// AttachmentConfig defines runtime configuration for attachment handling.
type AttachmentConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedExtensions  []string `toml:"allowed_extensions"`
	AllowedMediaTypes  []string `toml:"allowed_media_types"`
}

// Config defines runtime configuration for kbase.
type Config struct {
	APIURL      string           `toml:"api_url"`
	DBPath      string           `toml:"db_path"`
	UploadsDir  string           `toml:"uploads_dir"`
	LogLevel    string           `toml:"log_level"`
	Attachments AttachmentConfig `toml:"attachments"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Attachments: AttachmentConfig{
			MaxUploadBytes:     DefaultAttachmentMaxUploadBytes,
			MultipartMaxMemory: DefaultAttachmentMultipartMemory,
			AllowedExtensions:  append([]string(nil), defaultAllowedExtensions...),
		},
	}
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	if err := loadFileIfExists(path, &cfg); err != nil {
		return nil, err
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if uploadsDir := os.Getenv(uploadsDirEnvKey); uploadsDir != "" {
		cfg.UploadsDir = uploadsDir
	}
	if raw := strings.TrimSpace(os.Getenv(attachmentAllowedExtensionsEnvKey)); raw != "" {
		cfg.Attachments.AllowedExtensions = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(attachmentAllowedMediaTypesEnvKey)); raw != "" {
		cfg.Attachments.AllowedMediaTypes = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(attachmentMaxUploadBytesEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.Attachments.MaxUploadBytes = parsed
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = filepath.Join(filepath.Dir(cfg.DBPath), ".kbase", "uploads")
	}

	cfg.normalize()

	return &cfg, nil
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"uploads_dir",
	"log_level",
	"attachments.max_upload_bytes",
	"attachments.multipart_max_memory",
	"attachments.allowed_extensions",
	"attachments.allowed_media_types",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "uploads_dir":
		return c.UploadsDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "attachments.max_upload_bytes":
		return strconv.FormatInt(c.Attachments.MaxUploadBytes, 10), nil
	case "attachments.multipart_max_memory":
		return strconv.FormatInt(c.Attachments.MultipartMaxMemory, 10), nil
	case "attachments.allowed_extensions":
		return strings.Join(c.Attachments.AllowedExtensions, ","), nil
	case "attachments.allowed_media_types":
		return strings.Join(c.Attachments.AllowedMediaTypes, ","), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func loadFileIfExists(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "attachments.max_upload_bytes", "attachments.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "attachments.allowed_extensions", "attachments.allowed_media_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
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
	return out
}

func (c *Config) normalize() {
	if c.Attachments.MaxUploadBytes <= 0 {
		c.Attachments.MaxUploadBytes = DefaultAttachmentMaxUploadBytes
	}
	if c.Attachments.MultipartMaxMemory <= 0 {
		c.Attachments.MultipartMaxMemory = DefaultAttachmentMultipartMemory
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Attachments.AllowedExtensions = normalizeExtensions(c.Attachments.AllowedExtensions)
	c.Attachments.AllowedMediaTypes = normalizeMediaTypes(c.Attachments.AllowedMediaTypes)
}

func normalizeExtensions(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
