package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"kbase/internal/blobstore"
	"kbase/internal/store"
)

const (
	allowRemoteEnvKey = "KBASE_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second

	loginFailureLimit  = 5
	loginFailureWindow = time.Minute
	loginBlockDuration = 5 * time.Minute
)

// Server wraps HTTP handlers for the kbase API.
type Server struct {
	addr              string
	store             *store.Store
	authService       *AuthService
	articleService    *ArticleService
	attachmentService *AttachmentService
	logger            *slog.Logger
	dbPath            string
	uploadsDir        string
	multipartMemory   int64
	loginLimiter      *loginRateLimiter
}

// Options carries the paths and limits the server reports and enforces.
type Options struct {
	DBPath             string
	UploadsDir         string
	MultipartMaxMemory int64
}

// New creates a new server instance.
func New(addr string, st *store.Store, blobs blobstore.BlobStore, policy blobstore.Policy, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	attachmentService := NewAttachmentService(st, st, blobs, policy, logger)
	multipartMemory := opts.MultipartMaxMemory
	if multipartMemory <= 0 {
		multipartMemory = 8 << 20
	}

	return &Server{
		addr:              addr,
		store:             st,
		authService:       NewAuthService(st),
		articleService:    NewArticleService(st, attachmentService),
		attachmentService: attachmentService,
		logger:            logger,
		dbPath:            opts.DBPath,
		uploadsDir:        opts.UploadsDir,
		multipartMemory:   multipartMemory,
		loginLimiter:      newLoginRateLimiter(loginFailureLimit, loginFailureWindow, loginBlockDuration),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
