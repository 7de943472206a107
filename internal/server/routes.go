package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Authentication.
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)
	mux.Handle("GET /v1/auth/me", s.withAuth(http.HandlerFunc(s.handleMe)))

	// Articles collection.
	mux.HandleFunc("GET /v1/articles", s.handleListArticles)
	mux.Handle("POST /v1/articles", s.withAuth(http.HandlerFunc(s.handleCreateArticle)))

	// Single article.
	mux.HandleFunc("GET /v1/articles/{id}", s.handleGetArticle)
	mux.Handle("PATCH /v1/articles/{id}", s.withAuth(http.HandlerFunc(s.handleUpdateArticle)))
	mux.Handle("DELETE /v1/articles/{id}", s.withAuth(http.HandlerFunc(s.handleDeleteArticle)))

	// Article attachments.
	mux.HandleFunc("GET /v1/articles/{id}/attachments", s.handleListArticleAttachments)
	mux.Handle("POST /v1/articles/{id}/attachments", s.withAuth(http.HandlerFunc(s.handleCreateArticleAttachment)))

	// Single attachment.
	mux.HandleFunc("GET /v1/attachments/{attachment_id}", s.handleGetAttachment)
	mux.HandleFunc("GET /v1/attachments/{attachment_id}/content", s.handleGetAttachmentContent)
	mux.Handle("DELETE /v1/attachments/{attachment_id}", s.withAuth(http.HandlerFunc(s.handleDeleteAttachment)))

	return s.withRequestLogging(mux)
}

// withAuth resolves the session from the cookie or an Authorization bearer
// token and rejects the request when neither yields an active user.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromRequest(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
			return
		}
		user, err := s.authService.AuthenticateSessionToken(r.Context(), token, time.Now().UTC())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if user == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("session is invalid or expired")))
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}

func sessionTokenFromRequest(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
