// Package photos finds stock photos for activities that were created
// without an image.
package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"signups/internal/domain/activity"
)

const (
	defaultBaseURL = "https://api.unsplash.com"
	perPage        = 10
)

// UnsplashClient searches Unsplash for landscape photos.
type UnsplashClient struct {
	httpClient    *http.Client
	baseURL       string
	accessKey     string
	fallbackQuery string
	pick          func(n int) int
}

// NewUnsplashClient creates a client. An empty accessKey disables searching.
func NewUnsplashClient(accessKey, fallbackQuery string) *UnsplashClient {
	return &UnsplashClient{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       defaultBaseURL,
		accessKey:     accessKey,
		fallbackQuery: fallbackQuery,
		pick:          rand.IntN,
	}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
	} `json:"results"`
}

// Search returns a random photo from the first page of results for query.
// An empty result set is retried once with the fallback query.
// POST: Returns nil on any failure; errors are logged, never returned
func (c *UnsplashClient) Search(ctx context.Context, query string) *activity.Image {
	if c.accessKey == "" {
		return nil
	}
	img, err := c.search(ctx, query)
	if err == nil && img == nil && c.fallbackQuery != "" && query != c.fallbackQuery {
		img, err = c.search(ctx, c.fallbackQuery)
	}
	if err != nil {
		slog.Warn("photo_search_failed", "query", query, "error", err)
		return nil
	}
	return img
}

func (c *UnsplashClient) search(ctx context.Context, query string) (*activity.Image, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprint(perPage))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash search: status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("unsplash search: decode: %w", err)
	}
	if len(body.Results) == 0 {
		return nil, nil
	}
	p := body.Results[c.pick(len(body.Results))]
	return &activity.Image{
		URL:              p.URLs.Regular,
		PhotographerName: p.User.Name,
		PhotographerURL:  p.User.Links.HTML,
	}, nil
}
