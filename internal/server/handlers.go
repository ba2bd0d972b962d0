package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/models"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeBadRequest  = "bad_request"
	codeValidation  = "validation_error"
	codeEmpty       = "empty_content"
	codeNotFound    = "not_found"
	codePersistence = "persistence_error"
	codeWatchOff    = "watch_disabled"
	codeInternal    = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForError maps the error taxonomy to an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrEmptyContent):
		return http.StatusBadRequest, codeEmpty
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, models.ErrPersistence):
		return http.StatusInternalServerError, codePersistence
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// detach keeps work running when the client goes away mid-request.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request", zap.String("title", input.Title))
	result, err := s.indexer.Ingest(detach(r), &input)
	if err != nil {
		s.fail(w, "ingest", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	docs, err := s.indexer.List(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list documents", err)
		return
	}
	if docs == nil {
		docs = []*models.DocumentSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.Delete(detach(r), id); err != nil {
		s.fail(w, "delete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "document deleted"})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.indexer.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "details", err)
		return
	}
	s.respondJSON(w, http.StatusOK, details)
}

type regenerateRequest struct {
	DocumentID string `json:"documentId"`
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, codeValidation, "documentId is required")
		return
	}
	stats, err := s.indexer.RegenerateOne(detach(r), req.DocumentID)
	if err != nil {
		s.fail(w, "regenerate", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// batchRequest selects documents for a batch regeneration: explicit ids or all of them.
type batchRequest struct {
	DocumentIDs []string `json:"documentIds"`
	All         bool     `json:"all"`
}

func (b *batchRequest) validate() error {
	if !b.All && len(b.DocumentIDs) == 0 {
		return errors.New("documentIds or all is required")
	}
	return nil
}

func (s *Server) runBatch(ctx context.Context, req *batchRequest, progress func(models.Progress)) (*models.BatchResult, error) {
	if req.All {
		return s.indexer.RegenerateAll(ctx, progress)
	}
	return s.indexer.RegenerateMany(ctx, req.DocumentIDs, progress), nil
}

func (s *Server) handleRegenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	result, err := s.runBatch(detach(r), &req, nil)
	if err != nil {
		s.fail(w, "regenerate batch", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexer.ClearAll(detach(r))
	if err != nil {
		s.fail(w, "clear", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := CollectStatus(r.Context(), s.indexer, s.config, s.logger)
	if err != nil {
		s.fail(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail logs err and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, code, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Error: message, Code: code})
}
