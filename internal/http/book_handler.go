// Package http exposes the catalog over REST. Handlers translate repository
// errors to transport responses and hold no decision logic of their own.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/book"
	"bookcatalog/internal/httpx"
)

type BookHandler struct {
	repo book.Repository
	log  *slog.Logger
}

func NewBookHandler(repo book.Repository, log *slog.Logger) *BookHandler {
	return &BookHandler{repo: repo, log: log}
}

// List handles GET /books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.repo.FindAll(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusOK, books)
}

// Get handles GET /books/{id}.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "book not found", nil)
		return
	}

	b, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusOK, b)
}

// Create handles POST /books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if details := decodeAndValidate(r, &req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_failed", "Validation failed", details)
		return
	}

	b := book.New(req.Title, req.Author, req.ISBN, req.PublicationYear)
	b.Description = req.Description
	b.CoverURL = req.CoverURL

	if err := h.repo.Save(r.Context(), b); err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusCreated, b)
}

// Update handles PUT /books/{id}. Only provided fields are applied to the
// fetched record before it is saved again.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "book not found", nil)
		return
	}

	b, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	var req updateBookRequest
	if details := decodeAndValidate(r, &req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_failed", "Validation failed", details)
		return
	}

	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Author != nil {
		b.Author = *req.Author
	}
	if req.ISBN != nil {
		b.ISBN = *req.ISBN
	}
	if req.PublicationYear != nil {
		b.PublicationYear = *req.PublicationYear
	}
	if req.Description != nil {
		b.Description = req.Description
	}
	if req.CoverURL != nil {
		b.CoverURL = req.CoverURL
	}

	if err := h.repo.Save(r.Context(), b); err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusOK, b)
}

// Delete handles DELETE /books/{id} (soft delete).
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "book not found", nil)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusOK, nil)
}

// Search handles GET /books/search?q=…
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.JSONError(r, w, http.StatusBadRequest, "missing_query", "search query parameter (q) is required", nil)
		return
	}

	books, err := h.repo.Search(r.Context(), query)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, http.StatusOK, books)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *BookHandler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_failed", "Validation failed", verr.Fields)
		return
	}

	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", nf.Error(), nil)
		return
	}

	h.log.Error("request failed", "path", r.URL.Path, "error", err,
		"request_id", httpx.RequestIDFrom(r))
	httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "An internal error occurred", nil)
}
