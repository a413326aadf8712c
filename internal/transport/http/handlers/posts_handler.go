package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oktntko/book-share/internal/domain/enums"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	postsvc "github.com/oktntko/book-share/internal/services/posts"
	"github.com/oktntko/book-share/internal/transport/http/dto"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

type PostsHandler struct {
	posts *postsvc.Service
}

func NewPostsHandler(posts *postsvc.Service) *PostsHandler {
	return &PostsHandler{posts: posts}
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	post, err := h.posts.Create(r.Context(), identity.UserID, postFields(req))
	if err != nil {
		writePostError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.PostResponse{Post: post})
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	post, err := h.posts.Get(r.Context(), postID)
	if err != nil {
		writePostError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewPostResponse(post))
}

// List serves the public feed. Anonymous readers see published posts only;
// the mine=1 query narrows to the caller's own posts, drafts included.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := pgrepo.PostFilter{
		ISBN:          r.URL.Query().Get("isbn"),
		Kind:          enums.PostKind(r.URL.Query().Get("kind")),
		PublishedOnly: true,
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown post kind")
		return
	}

	if r.URL.Query().Get("mine") == "1" {
		identity, ok := requireIdentity(w, r)
		if !ok {
			return
		}
		filter.UserID = identity.UserID
		filter.PublishedOnly = false
	}

	posts, err := h.posts.List(r.Context(), filter)
	if err != nil {
		writePostError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewPostListResponse(posts))
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.PostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	post, err := h.posts.Update(r.Context(), postID, identity.UserID, req.UpdatedAt, postFields(req))
	if err != nil {
		writePostError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PostResponse{Post: post})
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.DeletePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.posts.Delete(r.Context(), postID, identity.UserID, req.UpdatedAt); err != nil {
		writePostError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func postFields(req dto.PostRequest) pgrepo.PostFields {
	return pgrepo.PostFields{
		ISBN:      req.ISBN,
		Kind:      enums.PostKind(req.Kind),
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		Published: req.Published,
	}
}

func writePostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case isVersioningError(err):
		writeVersioningError(w, err)
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid id in path")
		return 0, false
	}
	return id, true
}
