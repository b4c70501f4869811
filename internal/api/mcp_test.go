package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"chatdragon/internal/actors"
	"chatdragon/internal/director"
	"chatdragon/internal/llm"
	"chatdragon/internal/llm/llmtest"
	"chatdragon/internal/mcp"
	"chatdragon/internal/prompts"
)

func TestMCPOverSSE(t *testing.T) {
	const town = "Millbrook, a river port of 800 souls."
	upstream := llmtest.NewServer(t, func(req llmtest.Request) llmtest.Response {
		return llmtest.Text(town)
	})
	client := llm.NewClient(upstream.Config(), nil)

	functions, err := prompts.Load()
	if err != nil {
		t.Fatalf("Failed to load prompts: %v", err)
	}
	registry, err := director.NewRegistry(client, functions...)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	srv := NewServer(
		director.NewDirector(registry, client, nil, nil),
		actors.NewGenerator(registry, nil, nil),
		Options{MCPHandler: mcp.NewHandler(mcp.NewServer(registry, "test", nil, nil))},
	)

	// Short deadlines, so a session outliving them shows up quickly.
	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.Config.ReadTimeout = 300 * time.Millisecond
	ts.Config.WriteTimeout = 300 * time.Millisecond
	ts.Start()
	t.Cleanup(ts.Close)

	ctx := context.Background()
	tools := mcp.NewToolClient()
	if err := tools.Connect(ctx, ts.URL+"/mcp"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tools.Close() })

	got, err := tools.CallTool(ctx, prompts.WorldGenerateTown, "a river port")
	if err != nil {
		t.Fatalf("First CallTool failed: %v", err)
	}
	if got != town {
		t.Errorf("Expected %q, got %q", town, got)
	}

	time.Sleep(time.Second)

	t.Run("session survives the server deadlines", func(t *testing.T) {
		got, err := tools.CallTool(ctx, prompts.WorldGenerateTown, "a hill fort")
		if err != nil {
			t.Fatalf("CallTool after deadlines failed: %v", err)
		}
		if got != town {
			t.Errorf("Expected %q, got %q", town, got)
		}

		listing, err := tools.ListTools(ctx)
		if err != nil {
			t.Fatalf("ListTools after deadlines failed: %v", err)
		}
		if listing == "" {
			t.Error("Expected tools to be listed")
		}
	})
}
