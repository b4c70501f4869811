package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolClient calls ChatDragon's prompt tools over MCP.
type ToolClient struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

func NewToolClient() *ToolClient {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "dragonctl",
		Version: "v1.0.0",
	}, nil)

	return &ToolClient{client: client}
}

// Connect opens an SSE session against the server's /mcp endpoint.
func (c *ToolClient) Connect(ctx context.Context, endpoint string) error {
	return c.ConnectTransport(ctx, mcp.NewSSEClientTransport(endpoint, nil))
}

func (c *ToolClient) ConnectTransport(ctx context.Context, transport mcp.Transport) error {
	session, err := c.client.Connect(ctx, transport)
	if err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	c.session = session
	return nil
}

func (c *ToolClient) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// ListTools returns one "- name: description" line per tool.
func (c *ToolClient) ListTools(ctx context.Context) (string, error) {
	if c.session == nil {
		return "", errors.New("not connected")
	}

	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", fmt.Errorf("failed to list tools: %w", err)
	}

	toolDescriptions := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		description := fmt.Sprintf("- %s: %s", tool.Name, tool.Description)
		if tool.InputSchema != nil {
			schemaJSON, _ := json.Marshal(tool.InputSchema)
			description += fmt.Sprintf(" (Schema: %s)", string(schemaJSON))
		}
		toolDescriptions = append(toolDescriptions, description)
	}

	return strings.Join(toolDescriptions, "\n"), nil
}

// CallTool runs a prompt tool with the given input text.
func (c *ToolClient) CallTool(ctx context.Context, name, input string) (string, error) {
	if c.session == nil {
		return "", errors.New("not connected")
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: map[string]any{"input": input},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", name, err)
	}

	response := textOf(result.Content)
	if result.IsError {
		return "", fmt.Errorf("%s: %s", name, response)
	}
	return response, nil
}

func textOf(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
