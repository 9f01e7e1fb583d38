// Package client is a Go client for the ourstory HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

// Error is returned for any non-2xx response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ourstory: %d %s", e.Status, e.Message)
}

// Client talks to one ourstory server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login signs in and keeps the returned token for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", err
	}
	c.setToken(out.Token)
	return out.Token, nil
}

// Logout ends the session on the server and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setToken("")
	return err
}

// Me returns the signed-in admin.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListMemories returns the timeline in display order.
func (c *Client) ListMemories(ctx context.Context) ([]Memory, error) {
	var out []Memory
	if err := c.doJSON(ctx, http.MethodGet, "/api/memories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMemory returns one memory with its images.
func (c *Client) GetMemory(ctx context.Context, id string) (*Memory, error) {
	var m Memory
	if err := c.doJSON(ctx, http.MethodGet, "/api/memories/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMemory creates a memory and returns its id.
func (c *Client) CreateMemory(ctx context.Context, in MemoryInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/memories", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateMemory edits a memory.
func (c *Client) UpdateMemory(ctx context.Context, id string, in MemoryInput) error {
	return c.doJSON(ctx, http.MethodPut, "/api/memories/"+url.PathEscape(id), in, nil)
}

// DeleteMemory removes a memory and its images.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/memories/"+url.PathEscape(id), nil, nil)
}

// ReorderMemories applies new sort orders.
func (c *Client) ReorderMemories(ctx context.Context, order []OrderItem) error {
	return c.doJSON(ctx, http.MethodPut, "/api/memories/reorder", orderBody(order), nil)
}

// GetValentine returns the closing message.
func (c *Client) GetValentine(ctx context.Context) (*Valentine, error) {
	var v Valentine
	if err := c.doJSON(ctx, http.MethodGet, "/api/valentine", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateValentine replaces the closing message.
func (c *Client) UpdateValentine(ctx context.Context, in ValentineInput) error {
	return c.doJSON(ctx, http.MethodPut, "/api/valentine", in, nil)
}

// UploadImages attaches files to a memory in one multipart request.
func (c *Client) UploadImages(ctx context.Context, memoryID string, files []File) ([]Image, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		h.Set("Content-Type", ct)
		pw, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating part %s: %w", f.Name, err)
		}
		if _, err := pw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("writing part %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out struct {
		Images []Image `json:"images"`
	}
	path := "/uploads/" + url.PathEscape(memoryID) + "/images"
	if err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// DeleteImage removes one image from a memory.
func (c *Client) DeleteImage(ctx context.Context, memoryID, imageID string) error {
	return c.doJSON(ctx, http.MethodDelete, imagePath(memoryID, imageID), nil, nil)
}

// ReorderImages applies new sort orders within one memory.
func (c *Client) ReorderImages(ctx context.Context, memoryID string, order []OrderItem) error {
	path := "/uploads/" + url.PathEscape(memoryID) + "/images/reorder"
	return c.doJSON(ctx, http.MethodPut, path, orderBody(order), nil)
}

// UpdateImageAlt sets an image caption and returns the updated image.
func (c *Client) UpdateImageAlt(ctx context.Context, memoryID, imageID, alt string) (*Image, error) {
	var img Image
	if err := c.doJSON(ctx, http.MethodPut, imagePath(memoryID, imageID), map[string]string{"alt": alt}, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

func imagePath(memoryID, imageID string) string {
	return "/uploads/" + url.PathEscape(memoryID) + "/images/" + url.PathEscape(imageID)
}

func orderBody(order []OrderItem) map[string][]OrderItem {
	if order == nil {
		order = []OrderItem{}
	}
	return map[string][]OrderItem{"order": order}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func responseError(status int, data []byte) *Error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return &Error{Status: status, Message: body.Error}
	}
	return &Error{Status: status, Message: http.StatusText(status)}
}
