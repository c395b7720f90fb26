// Package classify is the HTTP client for the statistical intent model.
//
// The model (a bag-of-words classifier trained on recorded commands) runs
// behind a small prediction server. The matcher only consults it after every
// rule has failed, and treats any transport or server error as "no intent".
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the prediction endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates a classifier client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Predict sends the normalized text and returns the predicted label.
// API shape: POST {"text": "..."} answered by {"label": "..."}.
func (c *Client) Predict(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshalling predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("predict failed (status %d): %s", resp.StatusCode, body)
	}

	var result struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding predict response: %w", err)
	}
	return result.Label, nil
}
