package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/library"
	"github.com/hyperjump/miru/internal/media"
	"github.com/hyperjump/miru/internal/models"
)

type registerRequest struct {
	Path string `json:"path"`
}

// handleRegister registers the file at path, or every media file under it
// when path is a directory.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "path not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("register request", zap.String("path", req.Path), zap.Bool("dir", info.IsDir()))

	if info.IsDir() {
		result, err := s.engine.RegisterBatch(r.Context(), req.Path, nil)
		if err != nil {
			s.logger.Error("batch registration failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusCreated, result)
		return
	}

	id, err := s.engine.Register(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("registration failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, registerStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "status": "registered"})
}

// registerStatus maps embedding and decoding failures to 422; anything the
// client cannot fix by changing the file stays a 500.
func registerStatus(err error) int {
	if errors.Is(err, media.ErrMedia) || errors.Is(err, embedding.ErrModel) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query), zap.String("type", string(query.Type)), zap.Int("limit", query.Limit))

	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, searchStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func searchStatus(err error) int {
	switch {
	case errors.Is(err, media.ErrMedia), errors.Is(err, embedding.ErrModel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := s.engine.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "record not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	s.logger.Debug("delete record request", zap.Int64("id", id))
	if err := s.engine.Remove(r.Context(), id); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "record not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear request")
	if err := s.engine.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.Info(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
