// Package mcp exposes the registered prompt functions as MCP tools and
// provides a small client for calling them.
package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"chatdragon/internal/debug"
	"chatdragon/internal/telemetry"
)

// Functions is the part of the function registry the MCP server needs.
type Functions interface {
	Names() []string
	Description(name string) string
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolInput is the argument object every prompt tool accepts.
type ToolInput struct {
	Input string `json:"input"`
}

// NewServer registers one tool per function.
func NewServer(functions Functions, version string, debugLogger *debug.Logger, metrics *telemetry.Metrics) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "chatdragon",
		Version: version,
	}, nil)

	for _, name := range functions.Names() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        name,
			Description: functions.Description(name),
		}, toolHandler(functions, name, debugLogger, metrics))
	}

	return server
}

// NewHandler serves server over SSE. Every connection shares the same
// server and therefore the same tools.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return server
	})
}

func toolHandler(functions Functions, name string, debugLogger *debug.Logger, metrics *telemetry.Metrics) mcp.ToolHandlerFor[ToolInput, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ToolInput]) (*mcp.CallToolResultFor[any], error) {
		debugLogger.Printf("MCP call %s: %q", name, params.Arguments.Input)

		text, err := functions.Call(ctx, name, map[string]any{"input": params.Arguments.Input})
		if err != nil {
			metrics.ObserveFunction(name, "mcp", "execution_failed")
			return &mcp.CallToolResultFor[any]{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}

		metrics.ObserveFunction(name, "mcp", "")
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}
