package server

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"kbase/internal/api"
	"kbase/internal/models"
)

// multipartOverhead pads the request body cap beyond the file-size limit to
// leave room for multipart boundaries and form fields.
const multipartOverhead = 1 << 20

func (s *Server) handleCreateArticleAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}

	articleID, ok := s.articleIDOrBadRequest(w, r)
	if !ok {
		return
	}

	maxBody := s.attachmentService.policy.MaxSizeBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	declaredMediaType := firstNonEmpty(header.Header.Get("Content-Type"), r.FormValue("media_type"))
	if declaredMediaType == "" {
		peek, _ := buffered.Peek(512)
		declaredMediaType = http.DetectContentType(peek)
	}

	attachment, err := s.attachmentService.Attach(r.Context(), articleID, user.ID, buffered, AttachInput{
		OriginalName:      firstNonEmpty(r.FormValue("filename"), header.Filename),
		DeclaredMediaType: declaredMediaType,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, attachment)
}

func (s *Server) handleListArticleAttachments(w http.ResponseWriter, r *http.Request) {
	articleID, ok := s.articleIDOrBadRequest(w, r)
	if !ok {
		return
	}

	attachments, err := s.attachmentService.List(r.Context(), articleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}

	s.writeJSON(w, http.StatusOK, api.AttachmentListResponse{Attachments: attachments, Count: len(attachments)})
}

func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID, err := requireAttachmentID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	attachment, err := s.attachmentService.Get(r.Context(), attachmentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, attachment)
}

func (s *Server) handleGetAttachmentContent(w http.ResponseWriter, r *http.Request) {
	attachmentID, err := requireAttachmentID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	content, err := s.attachmentService.OpenContent(r.Context(), attachmentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": content.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		// Headers are already out; the copy failure can only be logged.
		s.log().Warn("attachment content stream interrupted", "attachment_id", attachmentID, "error", err)
	}
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}

	attachmentID, err := requireAttachmentID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	if err := s.attachmentService.Detach(r.Context(), attachmentID, user.ID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"id": attachmentID})
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}
