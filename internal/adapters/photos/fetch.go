package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher downloads externally hosted images.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with a 30 second timeout per download.
func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch returns the image body and its file extension. The caller closes the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch %s: not an image (%q)", url, ct)
	}
	return resp.Body, extension(ct), nil
}

func extension(contentType string) string {
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".jpg"
}
