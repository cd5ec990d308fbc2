package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenSource injects the bearer credential into outgoing requests and
// reacts to its revocation.
type TokenSource interface {
	Attach(req *http.Request)
	HandleUnauthorized()
}

// Client is the authenticated channel to the document-QA backend. Every
// call goes through it so 401 handling and error decoding stay uniform.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// GetJSON issues an authenticated GET and decodes a JSON response body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	return c.do(req, out)
}

// PostJSON issues an authenticated POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetBytes fetches a raw byte body (document content) and returns it
// together with the response content type.
func (c *Client) GetBytes(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request failed: %w", err)
	}
	c.tokens.Attach(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response failed: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if err := c.checkStatus(resp.StatusCode, raw, contentType); err != nil {
		return nil, "", err
	}
	return raw, contentType, nil
}

// PostMultipartFile uploads a local file as the given form field.
func (c *Client) PostMultipartFile(ctx context.Context, path, field, filePath string, out any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open upload file failed: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("build multipart form failed: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy upload file failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart form failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), &buf)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.tokens.Attach(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, raw, resp.Header.Get("Content-Type")); err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response failed: %w", err)
	}
	return nil
}

func (c *Client) checkStatus(statusCode int, body []byte, contentType string) error {
	if statusCode < 300 {
		return nil
	}
	if statusCode == http.StatusUnauthorized {
		c.logger.Warn("request unauthorized, clearing credentials")
		c.tokens.HandleUnauthorized()
		return ErrUnauthorized
	}

	message := decodeErrorMessage(body, contentType, http.StatusText(statusCode))
	c.logger.Warn("request failed",
		zap.Int("status", statusCode),
		zap.String("message", message),
	)
	return &StatusError{StatusCode: statusCode, Message: message}
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
