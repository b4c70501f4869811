package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeFunctions struct {
	calls []string
}

func (f *fakeFunctions) Names() []string {
	return []string{"NpcGenerateQuick", "WorldGenerateTown"}
}

func (f *fakeFunctions) Description(name string) string {
	return "Generate " + name
}

func (f *fakeFunctions) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	input, _ := args["input"].(string)
	f.calls = append(f.calls, name+":"+input)
	if input == "fail" {
		return "", errors.New("generation failed")
	}
	return name + " for " + input, nil
}

func connect(t *testing.T, functions Functions) *ToolClient {
	t.Helper()
	ctx := context.Background()

	server := NewServer(functions, "test", nil, nil)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := NewToolClient()
	if err := client.ConnectTransport(ctx, clientTransport); err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestToolSurface(t *testing.T) {
	functions := &fakeFunctions{}
	client := connect(t, functions)
	ctx := context.Background()

	t.Run("lists every function", func(t *testing.T) {
		listing, err := client.ListTools(ctx)
		if err != nil {
			t.Fatalf("ListTools failed: %v", err)
		}
		for _, name := range functions.Names() {
			if !strings.Contains(listing, "- "+name+": Generate "+name) {
				t.Errorf("Expected %s in listing, got:\n%s", name, listing)
			}
		}
		if !strings.Contains(listing, `"input"`) {
			t.Errorf("Expected input schema in listing, got:\n%s", listing)
		}
	})

	t.Run("call returns function text", func(t *testing.T) {
		got, err := client.CallTool(ctx, "WorldGenerateTown", "a river port")
		if err != nil {
			t.Fatalf("CallTool failed: %v", err)
		}
		if got != "WorldGenerateTown for a river port" {
			t.Errorf("Expected function text, got %q", got)
		}
		if functions.calls[len(functions.calls)-1] != "WorldGenerateTown:a river port" {
			t.Errorf("Expected registry call with input, got %v", functions.calls)
		}
	})

	t.Run("function failure is a tool error", func(t *testing.T) {
		_, err := client.CallTool(ctx, "NpcGenerateQuick", "fail")
		if err == nil || !strings.Contains(err.Error(), "generation failed") {
			t.Errorf("Expected tool error, got %v", err)
		}
	})
}

func TestToolClientRequiresConnection(t *testing.T) {
	client := NewToolClient()
	if _, err := client.ListTools(context.Background()); err == nil {
		t.Error("Expected error before Connect")
	}
	if _, err := client.CallTool(context.Background(), "x", "y"); err == nil {
		t.Error("Expected error before Connect")
	}
}
