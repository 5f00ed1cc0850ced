package tags

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/picstash/media-service/internal/config"
)

// SuggestionError wraps any failure of the external keyword service: a
// transport error, a non-2xx response, or an undecodable body.
type SuggestionError struct {
	Err error
}

func (e *SuggestionError) Error() string {
	return fmt.Sprintf("tag suggestion: %v", e.Err)
}

func (e *SuggestionError) Unwrap() error { return e.Err }

// Client calls an external ML keyword service that, given image bytes,
// returns a ranked list of descriptive keywords.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient builds a client from the tag_suggest config section.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TagSuggest.TimeoutSeconds) * time.Second,
		},
		endpoint: cfg.TagSuggest.Endpoint,
		apiKey:   cfg.TagSuggest.APIKey,
	}
}

type suggestResponse struct {
	Keywords []string `json:"keywords"`
}

// Suggest posts the image at imagePath to the keyword service and returns
// the ranked keywords as-is. Count and content are the caller's problem.
func (c *Client) Suggest(ctx context.Context, imagePath string) ([]string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, &SuggestionError{Err: fmt.Errorf("read image: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &SuggestionError{Err: err}
	}
	contentType := mime.TypeByExtension(filepath.Ext(imagePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SuggestionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &SuggestionError{Err: fmt.Errorf("service returned %d: %s", resp.StatusCode, body)}
	}

	var decoded suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &SuggestionError{Err: fmt.Errorf("decode response: %w", err)}
	}

	return decoded.Keywords, nil
}
