package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatdragon/internal/actors"
)

// Client calls a running ChatDragon server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) GetIntent(ctx context.Context, ask string) (string, error) {
	body, err := c.post(ctx, "/api/getintent", GetIntentRequest{Ask: ask})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) GenerateQuickNPC(ctx context.Context, ask string) (*actors.NonPlayerCharacter, error) {
	body, err := c.post(ctx, "/api/npc/generatequick", NpcGenerateRequest{Ask: ask})
	if err != nil {
		return nil, err
	}

	var resp NpcGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.NonPlayerCharacter == nil {
		return nil, fmt.Errorf("response has no nonPlayerCharacter")
	}
	return resp.NonPlayerCharacter, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		json.Unmarshal(body, &e)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: e.Message}
	}
	return body, nil
}
