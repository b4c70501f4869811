package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"chatdragon/internal/llm/llmtest"
	"chatdragon/internal/prompts"
)

func TestClient(t *testing.T) {
	ts, _, _ := newTestServer(t, func(req llmtest.Request) llmtest.Response {
		switch {
		case req.HasTools() && req.LastUserMessage() == "a town please":
			return llmtest.Call(prompts.WorldGenerateTown, `{"input":"a town"}`)
		case req.HasTools():
			return llmtest.Text("")
		case req.MaxTokens == 800:
			return llmtest.Text(dwarfJSON)
		default:
			return llmtest.Text("Millbrook")
		}
	})
	client := NewClient(ts.URL+"/", 5*time.Second)
	ctx := context.Background()

	t.Run("get intent", func(t *testing.T) {
		got, err := client.GetIntent(ctx, "a town please")
		if err != nil {
			t.Fatalf("GetIntent failed: %v", err)
		}
		if got != "Millbrook" {
			t.Errorf("Expected %q, got %q", "Millbrook", got)
		}

		got, err = client.GetIntent(ctx, "nothing to do")
		if err != nil || got != "" {
			t.Errorf("Expected empty intent, got (%q, %v)", got, err)
		}
	})

	t.Run("generate npc", func(t *testing.T) {
		npc, err := client.GenerateQuickNPC(ctx, "a dwarf")
		if err != nil {
			t.Fatalf("GenerateQuickNPC failed: %v", err)
		}
		if npc.Name != "Borin Ashforge" {
			t.Errorf("Expected Borin Ashforge, got %q", npc.Name)
		}
	})
}

func TestClientStatusError(t *testing.T) {
	ts, _, _ := newTestServer(t, func(req llmtest.Request) llmtest.Response {
		return llmtest.Text("  ")
	})
	client := NewClient(ts.URL, 5*time.Second)

	_, err := client.GenerateQuickNPC(context.Background(), "anyone")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnprocessableEntity || se.Message != "Failed to generate NPC." {
		t.Errorf("Unexpected status error: %+v", se)
	}
}
