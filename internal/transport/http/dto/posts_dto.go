package dto

import (
	"time"

	"github.com/oktntko/book-share/internal/domain/model"
	"github.com/oktntko/book-share/internal/services/posts"
)

type PostRequest struct {
	ISBN      string    `json:"isbn"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type DeletePostRequest struct {
	UpdatedAt time.Time `json:"updated_at"`
}

type PostResponse struct {
	model.Post
	Book *model.Book `json:"book,omitempty"`
}

type PostListResponse struct {
	Posts []PostResponse `json:"posts"`
}

func NewPostResponse(p posts.PostWithBook) PostResponse {
	return PostResponse{Post: p.Post, Book: p.Book}
}

func NewPostListResponse(items []posts.PostWithBook) PostListResponse {
	out := PostListResponse{Posts: make([]PostResponse, 0, len(items))}
	for _, item := range items {
		out.Posts = append(out.Posts, NewPostResponse(item))
	}
	return out
}
