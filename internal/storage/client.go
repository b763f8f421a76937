// Package storage wraps the external object-storage provider. The provider
// owns persistence; this client only uploads, deletes, and derives public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ObjectStore is the surface the domain modules depend on.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// Client talks to the object-storage HTTP API.
type Client struct {
	baseURL    string
	publicBase string
	httpClient *http.Client
}

// NewClient constructs a new client. publicBase defaults to baseURL when empty.
func NewClient(baseURL, publicBase string) *Client {
	if publicBase == "" {
		publicBase = baseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		publicBase: strings.TrimRight(publicBase, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote storage service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("storage returned status %d", resp.StatusCode)
	}
	return nil
}

// Put uploads an object and returns its public URL.
func (c *Client) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", lastSegment(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := writer.WriteField("content_type", contentType); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/objects/%s", c.baseURL, escapePath(path)), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return c.PublicURL(path), nil
}

// Delete removes an object by path.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/objects/%s", c.baseURL, escapePath(path)), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete failed with status %d", resp.StatusCode)
	}
	return nil
}

// PublicURL derives the externally reachable URL for an object path.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/objects/%s", c.publicBase, escapePath(path))
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

var _ ObjectStore = (*Client)(nil)
