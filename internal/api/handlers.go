package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/project"
)

// Handler holds API route handlers.
type Handler struct {
	svc *project.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *project.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("structured file not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidDocument):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, project.ErrHistoryDisabled):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetContext handles GET /api/context.
//
//	@Summary		Get the structured file and its parsed document
//	@Tags			context
//	@Produce		json
//	@Success		200	{object}	ContextDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/context [get]
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Context(r.Context())
	if err != nil {
		writeServiceError(w, "get context", err)
		return
	}
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// UpdateContext handles PUT /api/context.
//
//	@Summary		Replace the structured file with optimistic concurrency
//	@Tags			context
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateContextRequest	true	"New content"
//	@Success		200		{object}	ContextDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/context [put]
func (h *Handler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	detail, err := h.svc.UpdateContext(r.Context(), []byte(req.Content), ifMatch)
	if err != nil {
		writeServiceError(w, "update context", err)
		return
	}
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// Validate handles GET /api/validate.
//
//	@Summary		Validate the structured file
//	@Tags			context
//	@Produce		json
//	@Success		200	{object}	ValidationResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [get]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Validate(r.Context())
	var ve *apperr.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ValidationResponse{Valid: true, Issues: []apperr.Issue{}})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusOK, ValidationResponse{Issues: ve.Issues})
	default:
		writeServiceError(w, "validate", err)
	}
}

// Score handles GET /api/score.
//
//	@Summary		Score the structured file
//	@Tags			score
//	@Produce		json
//	@Success		200	{object}	score.Result
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/score [get]
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Score(r.Context())
	if err != nil {
		writeServiceError(w, "score", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /api/history.
//
//	@Summary		Recent score history
//	@Tags			score
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{array}		history.Entry
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": nonNil(entries)})
}

// Readable handles GET /api/readable.
//
//	@Summary		Render the Markdown mirror without writing it
//	@Tags			mirror
//	@Produce		json
//	@Success		200	{object}	ReadableResponse
//	@Security		BearerAuth
//	@Router			/readable [get]
func (h *Handler) Readable(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.Readable(r.Context())
	if err != nil {
		writeServiceError(w, "readable", err)
		return
	}
	_, readable := h.svc.Files()
	writeJSON(w, http.StatusOK, ReadableResponse{Path: readable, Content: md})
}

// Sync handles POST /api/sync.
//
//	@Summary		Run one mirror sync pass
//	@Tags			mirror
//	@Produce		json
//	@Param			dry_run	query		bool	false	"Plan only"
//	@Success		200		{object}	mirror.Result
//	@Failure		500		{object}	mirror.Result
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	res := h.svc.Sync(r.Context(), dryRun)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
