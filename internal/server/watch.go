package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/config"
	"github.com/hyperjump/chunkd/internal/watcher"
)

type watchDirectoryRequest struct {
	Path string `json:"path"`
}

type watchDirectoriesResponse struct {
	Directories []string `json:"directories"`
}

func (s *Server) watchEnabled(w http.ResponseWriter) bool {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, codeWatchOff, "directory watching is not enabled")
		return false
	}
	return true
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if !s.watchEnabled(w) {
		return
	}
	s.respondJSON(w, http.StatusOK, watchDirectoriesResponse{Directories: s.watch.Directories()})
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if !s.watchEnabled(w) {
		return
	}
	var req watchDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, codeValidation, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidation, "invalid path")
		return
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs))
	if err := s.watch.AddDirectory(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.respondError(w, http.StatusNotFound, codeNotFound, err.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, watchDirectoriesResponse{Directories: s.watch.Directories()})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if !s.watchEnabled(w) {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var req watchDirectoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			path = req.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, codeValidation, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeValidation, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		if errors.Is(err, watcher.ErrNotWatched) {
			s.respondError(w, http.StatusNotFound, codeNotFound, err.Error())
			return
		}
		s.fail(w, "watch remove directory", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, watchDirectoriesResponse{Directories: s.watch.Directories()})
}

// persistWatchDirectories writes the current roots to the config file. A failed write is
// logged; the running watcher keeps the change either way.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch directories", zap.String("path", s.configPath), zap.Error(err))
	}
}
