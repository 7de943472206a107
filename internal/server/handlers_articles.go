package server

import (
	"fmt"
	"net/http"
	"strings"

	"kbase/internal/api"
	"kbase/internal/models"
	"kbase/internal/store"
)

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}

	var req api.ArticleCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	article, err := s.articleService.Create(r.Context(), user.ID, ArticleInput{
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, article)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.ArticleFilter{
		Search:   strings.TrimSpace(query.Get("search")),
		Category: strings.TrimSpace(query.Get("category")),
		AuthorID: strings.TrimSpace(query.Get("author_id")),
	}

	articles, err := s.articleService.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if articles == nil {
		articles = []models.Article{}
	}

	s.writeJSON(w, http.StatusOK, api.ArticleListResponse{Articles: articles, Count: len(articles)})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	articleID, ok := s.articleIDOrBadRequest(w, r)
	if !ok {
		return
	}

	article, err := s.articleService.Get(r.Context(), articleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}

	articleID, ok := s.articleIDOrBadRequest(w, r)
	if !ok {
		return
	}

	var req api.ArticleUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	article, err := s.articleService.Update(r.Context(), articleID, user.ID, ArticleInput{
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}

	articleID, ok := s.articleIDOrBadRequest(w, r)
	if !ok {
		return
	}

	if err := s.articleService.Delete(r.Context(), articleID, user.ID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"id": articleID})
}
