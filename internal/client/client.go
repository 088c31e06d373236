// Package client talks to the annotation storage service over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

// ErrNotFound is returned when the service answers 404.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storage returned status %d", e.Code)
	}
	return fmt.Sprintf("storage returned status %d: %s", e.Code, e.Message)
}

// Client is a storage client bound to one service base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client with its own transport and a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
				MaxIdleConnsPerHost: 4,
			},
		},
	}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// ListAnnotations returns the annotations of one article.
func (c *Client) ListAnnotations(ctx context.Context, slug string) ([]domain.Annotation, error) {
	q := url.Values{"articleSlug": {slug}}
	var out []domain.Annotation
	if err := c.do(ctx, http.MethodGet, "/api/comments?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	return out, nil
}

// CreateAnnotation stores a new annotation; the service assigns id and
// creation time.
func (c *Client) CreateAnnotation(ctx context.Context, in domain.NewAnnotation) (*domain.Annotation, error) {
	var out domain.Annotation
	if err := c.do(ctx, http.MethodPost, "/api/comments", in, &out); err != nil {
		return nil, fmt.Errorf("failed to create annotation: %w", err)
	}
	return &out, nil
}

// CreateShare stores a shared snippet and returns its permalink.
func (c *Client) CreateShare(ctx context.Context, in domain.NewShare) (*domain.ShareCreated, error) {
	var out domain.ShareCreated
	if err := c.do(ctx, http.MethodPost, "/api/share", in, &out); err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}
	return &out, nil
}

// GetShare fetches a shared snippet.
func (c *Client) GetShare(ctx context.Context, id string) (*domain.ShareSnippet, error) {
	var out domain.ShareSnippet
	if err := c.do(ctx, http.MethodGet, "/api/share/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get share %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
