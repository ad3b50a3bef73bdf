package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/maktabahq/maktaba/internal/model"
)

const fetchTimeout = 15 * time.Second

// client is the shared HTTP implementation behind the three library
// providers. Each library exposes the same `GET {base}/api/book/{id}`
// shape, so only the tag and base URL differ.
type client struct {
	library model.Library
	baseURL string
	http    *http.Client
}

func newClient(library model.Library, baseURL string) *client {
	if baseURL == "" {
		baseURL = library.Info().URL
	}
	return &client{
		library: library,
		baseURL: baseURL,
		http:    &http.Client{Timeout: fetchTimeout},
	}
}

func (c *client) Library() model.Library {
	return c.library
}

// FetchBook performs the upstream request and normalizes the response.
// The title falls back to "Unknown" and the raw payload is preserved in
// Metadata.
func (c *client) FetchBook(ctx context.Context, bookID string) (*model.Book, error) {
	url := fmt.Sprintf("%s/api/book/%s", c.baseURL, bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Library: c.library, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Library: c.library, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Library: c.library, StatusCode: resp.StatusCode}
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &UpstreamError{Library: c.library, Err: fmt.Errorf("decode response: %w", err)}
	}

	book := &model.Book{
		ID:       bookID,
		Title:    "Unknown",
		Metadata: data,
	}
	if title, ok := data["title"].(string); ok && title != "" {
		book.Title = title
	}
	if author, ok := data["author"].(string); ok {
		book.Author = author
	}
	if content, ok := data["content"].(string); ok {
		book.Content = content
	}
	return book, nil
}

// NewShamela creates the shamela.ws provider. An empty baseURL uses the
// public site.
func NewShamela(baseURL string) Provider {
	return newClient(model.LibraryShamela, baseURL)
}

// NewKetabOnline creates the ketabonline.com provider.
func NewKetabOnline(baseURL string) Provider {
	return newClient(model.LibraryKetabOnline, baseURL)
}

// NewTurath creates the turath.io provider.
func NewTurath(baseURL string) Provider {
	return newClient(model.LibraryTurath, baseURL)
}
