package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// ErrMalformedReply is returned when a reply has an unexpected shape for
// the caller.
var ErrMalformedReply = errors.New("malformed model reply")

// Reply is the decoded outcome of one chat completion. It is one of
// ReplyText, ReplyFunctionCall or ReplyMalformed.
type Reply interface {
	Kind() string
	String() string
	isReply()
}

// ReplyText is a free-text answer. Text may be empty.
type ReplyText struct {
	Text string
}

// FunctionCall is one function the model proposes to call. Arguments is
// the raw JSON object text produced by the model.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments string
}

// ReplyFunctionCall carries the proposed calls in the order the model
// listed them. Calls is never empty.
type ReplyFunctionCall struct {
	Calls []FunctionCall
}

// ReplyMalformed is a response that arrived but matches neither shape.
type ReplyMalformed struct {
	Reason string
}

func (ReplyText) Kind() string         { return "text" }
func (ReplyFunctionCall) Kind() string { return "function_call" }
func (ReplyMalformed) Kind() string    { return "malformed" }

func (r ReplyText) String() string { return r.Text }

func (r ReplyFunctionCall) String() string {
	parts := make([]string, 0, len(r.Calls))
	for _, call := range r.Calls {
		parts = append(parts, fmt.Sprintf("%s(%s)", call.Name, call.Arguments))
	}
	return strings.Join(parts, "; ")
}

func (r ReplyMalformed) String() string { return "malformed: " + r.Reason }

func (ReplyText) isReply()         {}
func (ReplyFunctionCall) isReply() {}
func (ReplyMalformed) isReply()    {}

// First returns the first proposed call.
func (r ReplyFunctionCall) First() FunctionCall {
	return r.Calls[0]
}

// DecodeReply classifies the first choice of a chat completion.
func DecodeReply(resp *openai.ChatCompletion) Reply {
	if resp == nil || len(resp.Choices) == 0 {
		return ReplyMalformed{Reason: "no completion choices returned"}
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		calls := make([]FunctionCall, 0, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			if tc.Type != "" && string(tc.Type) != "function" {
				return ReplyMalformed{Reason: fmt.Sprintf("tool call %d has unsupported type %q", i, tc.Type)}
			}
			if strings.TrimSpace(tc.Function.Name) == "" {
				return ReplyMalformed{Reason: fmt.Sprintf("tool call %d has no function name", i)}
			}
			calls = append(calls, FunctionCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return ReplyFunctionCall{Calls: calls}
	}

	if msg.Refusal != "" {
		return ReplyMalformed{Reason: "model refused: " + msg.Refusal}
	}

	return ReplyText{Text: msg.Content}
}
