// Package chadai implements ports.ImageProvider against the Chad AI image
// API: one request starts a generation, completion is polled by content id.
package chadai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/domain"
)

// Config holds the provider credentials and polling bounds.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	PollInterval time.Duration // defaults to domain.ProviderPollInterval
	MaxWait      time.Duration // defaults to domain.ProviderMaxWait
}

// Client calls the Chad AI image API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New validates the config and builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("chadai: base_url is not configured")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("chadai: api_key is not set")
	}
	if cfg.Model == "" {
		return nil, errors.New("chadai: model is not set")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = domain.ProviderPollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = domain.ProviderMaxWait
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, logger: logger}, nil
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return "chadai" }

// normalizeAspect maps any "W:H" hint onto the aspects Chad accepts:
// 1:1, 3:2 or 2:3.
func normalizeAspect(aspect string) string {
	allowed := map[string]bool{"1:1": true, "3:2": true, "2:3": true}
	if allowed[aspect] {
		return aspect
	}
	parts := strings.SplitN(aspect, ":", 2)
	if len(parts) == 2 {
		w, errW := strconv.ParseFloat(parts[0], 64)
		h, errH := strconv.ParseFloat(parts[1], 64)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			ratio := w / h
			switch {
			case ratio > 0.85 && ratio < 1.15:
				return "1:1"
			case ratio > 1.0:
				return "3:2"
			default:
				return "2:3"
			}
		}
	}
	return "1:1"
}

// Generate starts a generation and waits for the result. Responses may
// carry the image inline (base64 or URL) or a content id to poll.
func (c *Client) Generate(ctx context.Context, description, aspect string) ([]byte, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("chadai: prompt must be a non-empty string")
	}

	start, err := c.requestJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/public/%s/imagine", c.cfg.BaseURL, c.cfg.Model),
		map[string]any{
			"prompt":       description,
			"api_key":      c.cfg.APIKey,
			"aspect_ratio": normalizeAspect(aspect),
		})
	if err != nil {
		return nil, err
	}

	if contentID := extractContentID(start); contentID != "" {
		return c.waitForContent(ctx, contentID)
	}

	data, err := c.extractImageBytes(ctx, start)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("chadai: cannot determine image bytes from generation response")
	}
	return data, nil
}

// waitForContent polls the check endpoint until the generation completes,
// fails, or the total wait bound is exceeded.
func (c *Client) waitForContent(ctx context.Context, contentID string) ([]byte, error) {
	deadline := time.Now().Add(c.cfg.MaxWait)
	checkURL := c.cfg.BaseURL + "/api/public/check"

	for {
		if time.Now().After(deadline) {
			return nil, errors.New("chadai: timeout while waiting for image generation to complete")
		}

		resp, err := c.requestJSON(ctx, http.MethodGet, checkURL, map[string]any{
			"api_key":    c.cfg.APIKey,
			"content_id": contentID,
		})
		if err != nil {
			return nil, err
		}

		status := strings.ToLower(stringField(resp, "status", "state"))
		switch status {
		case "pending", "processing", "queued", "running":
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.PollInterval):
			}
			continue
		case "failed", "cancelled":
			code := stringField(resp, "error_code", "code")
			if code == "" {
				code = "no-code"
			}
			msg := stringField(resp, "error_message", "message")
			if msg == "" {
				msg = "Unknown error"
			}
			return nil, fmt.Errorf("chadai: generation %s (%s): %s", status, code, msg)
		case "", "ready", "done", "completed":
			data, err := c.extractImageBytes(ctx, resp)
			if err != nil {
				return nil, err
			}
			if data == nil {
				return nil, errors.New("chadai: status indicates completion but no image data found in response")
			}
			return data, nil
		default:
			return nil, fmt.Errorf("chadai: generation finished with unexpected status %q", status)
		}
	}
}

// extractImageBytes pulls the image out of a response: base64 first, then
// a download URL (absolute or relative to the base URL).
func (c *Client) extractImageBytes(ctx context.Context, resp map[string]any) ([]byte, error) {
	b64 := stringField(resp, "image_base64")
	data, _ := resp["data"].(map[string]any)
	if b64 == "" && data != nil {
		b64 = stringField(data, "image_base64")
	}
	if b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("chadai: failed to decode base64 image data: %w", err)
		}
		return decoded, nil
	}

	imageURL := ""
	if output, ok := resp["output"].([]any); ok && len(output) > 0 {
		imageURL, _ = output[0].(string)
	}
	if imageURL == "" {
		imageURL = stringField(resp, "image_url", "url")
	}
	if imageURL == "" && data != nil {
		imageURL = stringField(data, "url")
	}
	if imageURL == "" {
		return nil, nil
	}

	if parsed, err := url.Parse(imageURL); err == nil && parsed.Scheme == "" {
		imageURL = c.cfg.BaseURL + "/" + strings.TrimLeft(imageURL, "/")
	}
	return c.download(ctx, imageURL)
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chadai: bad download URL: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chadai: network error while downloading image: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chadai: failed to read image body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chadai: HTTP %d while downloading image: %s", resp.StatusCode, body)
	}
	return body, nil
}

// requestJSON issues one request with a JSON body and decodes the JSON
// response. The check endpoint is a GET carrying a body, mirroring the
// upstream API.
func (c *Client) requestJSON(ctx context.Context, method, rawURL string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("chadai: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chadai: bad request URL: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chadai: network error while calling %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chadai: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chadai: HTTP %d for %s: %s", resp.StatusCode, rawURL, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("chadai: invalid JSON in response: %w", err)
	}
	return out, nil
}

func extractContentID(resp map[string]any) string {
	id := stringField(resp, "content_id", "contentId")
	if id != "" {
		return id
	}
	if data, ok := resp["data"].(map[string]any); ok {
		return stringField(data, "content_id")
	}
	return ""
}

// stringField returns the first non-empty string among the given keys.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
