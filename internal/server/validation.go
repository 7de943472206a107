package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	articleIDRegex    = regexp.MustCompile(`^ar-[0-9a-z]{6}$`)
	attachmentIDRegex = regexp.MustCompile(`^at-[0-9a-z]{6}$`)
)

func validateArticleID(id string) bool {
	return articleIDRegex.MatchString(id)
}

func validateAttachmentID(id string) bool {
	return attachmentIDRegex.MatchString(id)
}

func requireArticleID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !validateArticleID(id) {
		return "", badRequestCode(fmt.Errorf("invalid article id"), ErrCodeInvalidID)
	}
	return id, nil
}

func requireAttachmentID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("attachment_id"))
	if !validateAttachmentID(id) {
		return "", badRequestCode(fmt.Errorf("invalid attachment id"), ErrCodeInvalidID)
	}
	return id, nil
}

func (s *Server) articleIDOrBadRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := requireArticleID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}
