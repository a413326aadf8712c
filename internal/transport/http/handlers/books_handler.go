package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	booksvc "github.com/oktntko/book-share/internal/services/books"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

type BooksHandler struct {
	books *booksvc.Service
}

func NewBooksHandler(books *booksvc.Service) *BooksHandler {
	return &BooksHandler{books: books}
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.books == nil {
		writeInternal(w, "CATALOG_UNAVAILABLE", "book catalog is unavailable")
		return
	}

	isbn := chi.URLParam(r, "isbn")
	book, err := h.books.Lookup(r.Context(), isbn)
	if err != nil {
		if errors.Is(err, booksvc.ErrVolumeNotFound) {
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "NOT_FOUND",
				Message: "catalog does not know this isbn",
			})
			return
		}
		httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
			Code:    "CATALOG_ERROR",
			Message: "book catalog request failed",
		})
		return
	}

	httperrors.Write(w, http.StatusOK, book)
}
