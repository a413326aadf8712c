package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrVolumeNotFound marks an ISBN the catalog does not know. Callers treat it
// as an empty result, not a failure.
var ErrVolumeNotFound = errors.New("volume not found")

// CatalogClient talks to a Google-Books-compatible volumes API.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCatalogClient(baseURL string, httpClient *http.Client) (*CatalogClient, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url: %s", trimmed)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &CatalogClient{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: httpClient,
	}, nil
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo volumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	PageCount     int      `json:"pageCount"`
	ImageLinks    struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// FetchVolume queries the catalog for one ISBN. The first matching volume
// wins; an empty result set maps to ErrVolumeNotFound.
func (c *CatalogClient) FetchVolume(ctx context.Context, isbn string) (volumeInfo, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return volumeInfo{}, fmt.Errorf("isbn is required")
	}

	endpoint := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return volumeInfo{}, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return volumeInfo{}, fmt.Errorf("execute catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return volumeInfo{}, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return volumeInfo{}, fmt.Errorf("unexpected catalog status %d", resp.StatusCode)
	}

	var parsed volumesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return volumeInfo{}, fmt.Errorf("decode catalog response: %w", err)
	}
	if parsed.TotalItems == 0 || len(parsed.Items) == 0 {
		return volumeInfo{}, ErrVolumeNotFound
	}

	return parsed.Items[0].VolumeInfo, nil
}
