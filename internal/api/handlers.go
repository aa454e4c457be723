package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/divanvisagie/para-notes/internal/apperr"
	"github.com/divanvisagie/para-notes/internal/noteservice"
	"github.com/divanvisagie/para-notes/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from a wildcard route. Encoded slashes
// are supported (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// SaveRequest is the request body for saving a note.
type SaveRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SaveResponse reports whether a save was committed.
type SaveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MoveRequest is the request body for moving a note.
type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Tree handles GET /api/tree[?path=dir]: the ordered children of a
// directory, directories first then files.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	items, err := h.svc.Children(r.Context(), path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	if items == nil {
		items = []noteservice.TreeItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    path,
		"entries": items,
	})
}

// Page handles GET /api/pages/*: the rendered note or directory page.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	page, err := h.svc.Page(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		case errors.Is(err, apperr.ErrEncoding):
			writeJSON(w, http.StatusUnsupportedMediaType, errorBody("not a text file"))
		default:
			slog.Error("page failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Raw handles GET /api/raw/*: the exact on-disk bytes with a content type
// derived from the extension. Markdown and unknown types are octet streams
// of the editor's raw text round-trip.
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	data, err := h.svc.Raw(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("raw fetch failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(path))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Save handles POST /api/save with {"path","content"} and responds with
// {"success":bool,"error"?}. On success the index already reflects the new
// content when the response is written.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SaveResponse{Success: false, Error: "invalid JSON body"})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, SaveResponse{Success: false, Error: "path is required"})
		return
	}

	if err := h.svc.Save(r.Context(), req.Path, []byte(req.Content)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperr.ErrInvalidPath) {
			status = http.StatusBadRequest
		} else {
			slog.Error("save failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		}
		writeJSON(w, status, SaveResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Success: true})
}

// Move handles POST /api/move with {"from","to"}.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	if err := h.svc.Move(r.Context(), req.From, req.To); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("destination already exists"))
		default:
			slog.Error("move failed", slog.String("from", req.From), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?q=: ranked full-text results with
// highlighted snippets. An empty query yields an empty result set.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := h.svc.Search(r.Context(), q)
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

var contentTypes = map[string]string{
	".md":   "text/markdown; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".css":  "text/css",
	".js":   "application/javascript",
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
