// Package openrouter implements ports.ImageProvider on the OpenRouter
// chat/completions API with the image output modality.
package openrouter

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
	"strings"
	"time"

	"github.com/mooncrowned/storyed/internal/logging"
)

// DefaultBaseURL is the public OpenRouter endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is the default image-capable model.
const DefaultModel = "google/gemini-2.5-flash-image-preview"

// knownAspects are the ratios the Gemini image models document.
var knownAspects = map[string]bool{
	"1:1": true, "3:2": true, "2:3": true, "4:3": true, "3:4": true,
	"16:9": true, "9:16": true, "4:5": true, "5:4": true, "21:9": true,
}

// Config holds the provider credentials.
type Config struct {
	BaseURL string // defaults to DefaultBaseURL
	APIKey  string
	Model   string // defaults to DefaultModel
}

// Client calls OpenRouter.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New validates the config and builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter: api_key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}, nil
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return "openrouter" }

// normalizeAspect keeps known ratios, passes plausible "N:M" values
// through, and falls back to 1:1.
func normalizeAspect(aspect string) string {
	if knownAspects[aspect] {
		return aspect
	}
	parts := strings.SplitN(aspect, ":", 2)
	if len(parts) == 2 && isDigits(parts[0]) && isDigits(parts[1]) {
		return aspect
	}
	return "1:1"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Modalities  []string      `json:"modalities"`
	ImageConfig imageConfig   `json:"image_config"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type imageConfig struct {
	AspectRatio string `json:"aspect_ratio"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for one image and decodes the returned data URI
// (or downloads the image when the model answers with a plain URL).
func (c *Client) Generate(ctx context.Context, description, aspect string) ([]byte, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("openrouter: prompt must be a non-empty string")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: description}},
		Modalities:  []string{"image", "text"},
		ImageConfig: imageConfig{AspectRatio: normalizeAspect(aspect)},
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openrouter: bad request URL: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", "https://github.com/mooncrowned/storyed")
	req.Header.Set("X-Title", "storyed")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter: invalid JSON in response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("openrouter: no choices in response")
	}
	msg := parsed.Choices[0].Message
	if len(msg.Images) == 0 {
		// The model may answer with a refusal or plain text instead.
		return nil, fmt.Errorf("openrouter: no images generated, response content: %s", msg.Content)
	}

	imageURL := msg.Images[0].ImageURL.URL
	switch {
	case strings.HasPrefix(imageURL, "data:"):
		_, encoded, found := strings.Cut(imageURL, ",")
		if !found {
			return nil, errors.New("openrouter: malformed data URI in response")
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("openrouter: failed to decode base64 image data: %w", err)
		}
		return decoded, nil
	case strings.HasPrefix(imageURL, "http"):
		return c.download(ctx, imageURL)
	default:
		return nil, errors.New("openrouter: unsupported image URL format (expected data URI or http URL)")
	}
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openrouter: bad image URL: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to download image from %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to read image body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter: HTTP %d while downloading image", resp.StatusCode)
	}
	return body, nil
}
