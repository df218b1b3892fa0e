// Package api exposes the document REST surface: creating boards and
// fetching them by id. Live collaboration flows through the websocket
// endpoint, not this API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moodboard/server/internal/apperr"
	"moodboard/server/internal/board"
	"moodboard/server/internal/persist"
)

// Service handles document requests against the persistence store.
type Service struct {
	db     *persist.DB
	logger *slog.Logger
}

// NewService constructs the document service.
func NewService(db *persist.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// NewRouter mounts the document routes.
func NewRouter(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Post("/documents", svc.createDocument)
	r.Get("/documents/{id}", svc.fetchDocument)
	r.Put("/documents/{id}", svc.overwriteDocument)
	r.Patch("/documents/{id}/items", svc.patchItems)
	r.Put("/documents/{id}/settings", svc.putSettings)
	return r
}

type documentRequest struct {
	ID       string           `json:"id"`
	Items    []board.Item     `json:"items"`
	Settings board.Background `json:"settings"`
}

type documentResponse struct {
	ID       string           `json:"id"`
	Items    []board.Item     `json:"items"`
	Settings board.Background `json:"settings"`
}

func (s *Service) createDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		req.ID = board.NewID()
	}
	for _, it := range req.Items {
		if err := it.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	doc := persist.Document{ID: req.ID, Items: board.FilterPlaceholders(req.Items), Settings: req.Settings}
	if err := s.db.CreateDocument(doc); err != nil {
		s.logger.Error("create document failed",
			slog.String("doc", req.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create document")
		return
	}
	writeJSON(w, http.StatusCreated, documentResponse(doc))
}

func (s *Service) fetchDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.db.FetchDocument(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("fetch document failed",
			slog.String("doc", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

type itemsPatchRequest struct {
	Upserts    []board.Item `json:"upserts"`
	DeletedIDs []string     `json:"deletedIds"`
}

func (s *Service) patchItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req itemsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, it := range req.Upserts {
		if err := it.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	err := s.db.PatchItems(id, board.FilterPlaceholders(req.Upserts), req.DeletedIDs)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("patch items failed",
			slog.String("doc", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to patch items")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) putSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var settings board.Background
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.PatchSettings(id, settings); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("patch settings failed",
			slog.String("doc", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to patch settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) overwriteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, it := range req.Items {
		if err := it.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	doc := persist.Document{ID: id, Items: board.FilterPlaceholders(req.Items), Settings: req.Settings}
	if err := s.db.Overwrite(doc); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("overwrite document failed",
			slog.String("doc", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to overwrite document")
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
