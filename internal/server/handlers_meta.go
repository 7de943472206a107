package server

import (
	"net/http"

	"kbase/internal/api"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		Version:       Version,
		DBPath:        s.dbPath,
		UploadsDir:    s.uploadsDir,
		SchemaVersion: info.SchemaVersion,
		UserCount:     info.UserCount,
		ArticleCount:  info.ArticleCount,
		AttachCount:   info.AttachCount,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
