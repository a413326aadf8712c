package model

// Book is the subset of the external catalog's volume data this app keeps.
type Book struct {
	ISBN          string   `json:"isbn"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"published_date"`
	Description   string   `json:"description"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	PageCount     int      `json:"page_count"`
}
