// Package llmtest provides a fake Azure OpenAI chat-completions endpoint for
// tests.
package llmtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chatdragon/internal/config"
)

const (
	APIKey     = "test-key"
	Deployment = "gpt-4o-test"
)

// Request is the part of an incoming chat request tests care about.
type Request struct {
	Path       string
	APIVersion string
	APIKey     string
	Model      string
	Messages   []Message
	Tools      []Tool
	MaxTokens  int64
}

type Message struct {
	Role    string
	Content string
}

type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// HasTools reports whether function calling was enabled for the request.
func (r Request) HasTools() bool {
	return len(r.Tools) > 0
}

// LastUserMessage returns the content of the last user message.
func (r Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Response is what the fake server writes back.
type Response struct {
	Status int
	Body   string
}

// Handler decides the response for one request.
type Handler func(req Request) Response

// Server records every request and answers with Handler.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	handler  Handler
}

// NewServer starts a fake endpoint that is closed when the test ends.
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()

	s := &Server{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Config returns an Azure configuration pointing at the fake server.
func (s *Server) Config() config.AzureOpenAIConfig {
	return config.AzureOpenAIConfig{
		APIKey:         APIKey,
		DeploymentName: Deployment,
		Endpoint:       s.URL,
		APIVersion:     config.DefaultAPIVersion,
	}
}

// Requests returns a copy of the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Path = r.URL.Path
	req.APIVersion = r.URL.Query().Get("api-version")
	req.APIKey = r.Header.Get("Api-Key")

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	resp := s.handler(req)
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	io.WriteString(w, resp.Body)
}

func decodeRequest(body []byte) (Request, error) {
	var raw struct {
		Model     string `json:"model"`
		MaxTokens int64  `json:"max_tokens"`
		Messages  []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		Tools []struct {
			Function struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				Parameters  map[string]any `json:"parameters"`
			} `json:"function"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, err
	}

	req := Request{Model: raw.Model, MaxTokens: raw.MaxTokens}
	for _, m := range raw.Messages {
		req.Messages = append(req.Messages, Message{Role: m.Role, Content: contentText(m.Content)})
	}
	for _, t := range raw.Tools {
		req.Tools = append(req.Tools, Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return req, nil
}

// contentText flattens either a string or an array of text parts.
func contentText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.Text)
		}
		return b.String()
	}
	return ""
}

// Text answers with a plain assistant message.
func Text(content string) Response {
	return completion(map[string]any{
		"role":    "assistant",
		"content": content,
	}, "stop")
}

// Call answers with a single proposed function call.
func Call(name, arguments string) Response {
	return completion(map[string]any{
		"role":    "assistant",
		"content": nil,
		"tool_calls": []map[string]any{{
			"id":   "call_1",
			"type": "function",
			"function": map[string]any{
				"name":      name,
				"arguments": arguments,
			},
		}},
	}, "tool_calls")
}

// NoChoices answers with a completion that has an empty choices list.
func NoChoices() Response {
	return Response{Body: mustJSON(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   Deployment,
		"choices": []any{},
	})}
}

// Error answers with an OpenAI-style error body.
func Error(status int, message string) Response {
	return Response{Status: status, Body: mustJSON(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "invalid_request_error",
			"code":    nil,
			"param":   nil,
		},
	})}
}

func completion(message map[string]any, finishReason string) Response {
	return Response{Body: mustJSON(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   Deployment,
		"choices": []map[string]any{{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
			"logprobs":      nil,
		}},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 34,
			"total_tokens":      46,
		},
	})}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
