package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Image holds the bytes of one retrieved input image.
type Image struct {
	Ref  string
	Data []byte
	MIME string
}

// TrustedRef reports whether a submitted image reference points at one of the
// allowed storage hosts. Plain http is tolerated for localhost only; anything
// else must be https. This is the ingress guard that keeps the pipeline from
// fetching arbitrary URLs.
func TrustedRef(ref string, allowedHosts []string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || u.Path == "" || u.Path == "/" {
		return false
	}
	switch u.Scheme {
	case "https":
	case "http":
		if host != "localhost" && host != "127.0.0.1" {
			return false
		}
	default:
		return false
	}
	for _, allowed := range allowedHosts {
		if host == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Client retrieves input images from trusted storage.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a fetch client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// FetchAll retrieves every reference concurrently, preserving input order.
// Any single failure cancels the remaining fetches and fails the whole batch.
func (c *Client) FetchAll(ctx context.Context, refs []string) ([]Image, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("no image references to fetch")
	}
	images := make([]Image, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			img, err := c.fetchOne(ctx, ref)
			if err != nil {
				return err
			}
			images[i] = *img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Client) fetchOne(ctx context.Context, ref string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", ref, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", ref)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return &Image{Ref: ref, Data: data, MIME: mime}, nil
}
