package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatdragon/internal/config"
	"chatdragon/internal/debug"
	"chatdragon/internal/logging"
	"chatdragon/internal/observability"
	"chatdragon/internal/telemetry"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged turn in a conversation.
type Message struct {
	Role    Role
	Content string
}

// FunctionDefinition describes a callable function offered to the model.
// Parameters is a JSON schema object.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Settings are per-call sampling options. Zero values leave the
// deployment's defaults in place.
type Settings struct {
	MaxTokens      int64
	Temperature    *float64
	TopP           *float64
	ResponseFormat string // "" or "text" for free text, "json_object" for JSON mode
}

type CompletionRequest struct {
	Operation string // span and log name, e.g. "chat.intent"
	Function  string // prompt function being served, if any
	Messages  []Message
	Functions []FunctionDefinition // non-empty enables function calling
	Settings  Settings
}

// Completer sends a conversation to the model. *Client implements it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Reply, error)
}

// UpstreamError reports a failed round trip to the completion service.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: completion service returned %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: completion failed: %v", e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client is the long-lived handle to an Azure OpenAI chat deployment. It
// holds no per-call state and is safe for concurrent use.
type Client struct {
	client  *openai.Client
	model   string
	debug   *debug.Logger
	tracer  trace.Tracer
	log     *logging.CompletionLogger
	metrics *telemetry.Metrics
}

type Option func(*Client)

func WithCompletionLogger(l *logging.CompletionLogger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient builds the client from a validated Azure configuration. The
// deployment name is sent as the model. Retries are disabled.
func NewClient(cfg config.AzureOpenAIConfig, debugLogger *debug.Logger, opts ...Option) *Client {
	c := &Client{
		model:  cfg.DeploymentName,
		debug:  debugLogger,
		tracer: otel.Tracer("llm-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = config.DefaultAPIVersion
	}

	client := openai.NewClient(
		azure.WithEndpoint(strings.TrimSuffix(cfg.Endpoint, "/"), apiVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	)
	c.client = &client
	return c
}

// Model returns the deployment name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete performs one chat completion round trip and decodes the reply.
// A transport or service failure is returned as *UpstreamError; a response
// that arrives but cannot be interpreted is returned as ReplyMalformed.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Reply, error) {
	operation := req.Operation
	if operation == "" {
		operation = "llm.complete"
	}

	temperature := -1.0
	if req.Settings.Temperature != nil {
		temperature = *req.Settings.Temperature
	}

	ctx, span := c.tracer.Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.CreateGenAIAttributes("az.ai.openai", c.model, req.Settings.MaxTokens, temperature)...,
		),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("chatdragon.operation", operation),
		attribute.String("chatdragon.function", req.Function),
		attribute.Int("chatdragon.tools_offered", len(req.Functions)),
	)

	input := lastUserContent(req.Messages)
	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("content", input),
	))

	params := c.buildParams(req)

	c.debug.Printf("LLM %s - functions: %d, messages: %d, max tokens: %d", operation, len(req.Functions), len(req.Messages), req.Settings.MaxTokens)

	startTime := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	duration := time.Since(startTime)

	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		c.debug.Printf("LLM %s error: %v", operation, err)

		upstream := &UpstreamError{Operation: operation, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			upstream.StatusCode = apiErr.StatusCode
		}

		errMsg := err.Error()
		c.record(ctx, req, operation, input, "", logging.CompletionMetadata{
			Model:        c.model,
			MaxTokens:    req.Settings.MaxTokens,
			ResponseTime: duration,
			ToolsOffered: len(req.Functions),
			Error:        &errMsg,
		})
		c.metrics.ObserveCompletion(operation, "error", duration.Seconds(), 0, 0)
		return nil, upstream
	}

	reply := DecodeReply(resp)

	var finishReason string
	if len(resp.Choices) > 0 {
		finishReason = string(resp.Choices[0].FinishReason)
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("gen_ai.response.finish_reason", finishReason),
		attribute.String("chatdragon.reply_kind", reply.Kind()),
	)
	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("content", reply.String()),
	))

	c.debug.Printf("LLM %s reply: kind=%s finish_reason=%s tokens=%d/%d duration=%v",
		operation, reply.Kind(), finishReason, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, duration)

	c.record(ctx, req, operation, input, reply.String(), logging.CompletionMetadata{
		Model:        c.model,
		MaxTokens:    req.Settings.MaxTokens,
		ResponseTime: duration,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		FinishReason: finishReason,
		ToolsOffered: len(req.Functions),
	})
	c.metrics.ObserveCompletion(operation, reply.Kind(), duration.Seconds(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return reply, nil
}

// CompleteText runs Complete and requires a plain-text reply. Empty text is
// returned as-is.
func CompleteText(ctx context.Context, completer Completer, req CompletionRequest) (string, error) {
	reply, err := completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	switch r := reply.(type) {
	case ReplyText:
		return r.Text, nil
	case ReplyMalformed:
		return "", fmt.Errorf("%w: %s", ErrMalformedReply, r.Reason)
	default:
		return "", fmt.Errorf("%w: expected text, got %s", ErrMalformedReply, reply.Kind())
	}
}

func (c *Client) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: toMessageParams(req.Messages),
	}

	if req.Settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.Settings.MaxTokens)
	}
	if req.Settings.Temperature != nil {
		params.Temperature = openai.Float(*req.Settings.Temperature)
	}
	if req.Settings.TopP != nil {
		params.TopP = openai.Float(*req.Settings.TopP)
	}
	if req.Settings.ResponseFormat == "json_object" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: func() *shared.ResponseFormatJSONObjectParam {
				p := shared.NewResponseFormatJSONObjectParam()
				return &p
			}(),
		}
	}

	for _, fn := range req.Functions {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        fn.Name,
				Description: openai.String(fn.Description),
				Parameters:  shared.FunctionParameters(fn.Parameters),
			},
		})
	}

	return params
}

func toMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser || messages[i].Role == "" {
			return messages[i].Content
		}
	}
	return ""
}

// record appends to the completion log. Logging is best effort.
func (c *Client) record(ctx context.Context, req CompletionRequest, operation, input, response string, meta logging.CompletionMetadata) {
	if c.log == nil {
		return
	}
	err := c.log.LogCompletion(context.WithoutCancel(ctx), logging.Entry{
		RequestID: observability.RequestIDFromContext(ctx),
		Operation: operation,
		Function:  req.Function,
		Input:     input,
		Response:  response,
		Metadata:  meta,
	})
	if err != nil {
		c.debug.Printf("Failed to log completion: %v", err)
	}
}
