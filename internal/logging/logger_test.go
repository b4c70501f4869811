package logging

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestCompletionLogger(t *testing.T) {
	ctx := context.Background()

	logger, err := NewCompletionLogger(filepath.Join(t.TempDir(), "completions.db"))
	if err != nil {
		t.Fatalf("Failed to open completion log: %v", err)
	}
	defer logger.Close()

	t.Run("records are returned newest first", func(t *testing.T) {
		entries := []Entry{
			{RequestID: "req-1", Operation: "chat.intent", Input: "hello", Response: ""},
			{
				RequestID: "req-2",
				Operation: "prompt.invoke",
				Function:  "NpcGenerateQuick",
				Input:     "a grumpy dwarf",
				Response:  `{"name":"Borin"}`,
				Metadata: CompletionMetadata{
					Model:        "gpt-4o",
					MaxTokens:    800,
					ResponseTime: 1500 * time.Millisecond,
					InputTokens:  120,
					OutputTokens: 240,
				},
			},
		}
		for _, e := range entries {
			if err := logger.LogCompletion(ctx, e); err != nil {
				t.Fatalf("LogCompletion failed: %v", err)
			}
		}

		got, err := logger.RecentCompletions(ctx, 10)
		if err != nil {
			t.Fatalf("RecentCompletions failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(got))
		}
		if got[0].RequestID != "req-2" || got[0].Function != "NpcGenerateQuick" {
			t.Errorf("Unexpected newest record: %+v", got[0])
		}

		var meta CompletionMetadata
		if err := json.Unmarshal([]byte(got[0].Metadata), &meta); err != nil {
			t.Fatalf("Metadata is not JSON: %v", err)
		}
		if meta.OutputTokens != 240 || meta.Model != "gpt-4o" {
			t.Errorf("Unexpected metadata: %+v", meta)
		}
	})

	t.Run("limit is honoured", func(t *testing.T) {
		got, err := logger.RecentCompletions(ctx, 1)
		if err != nil {
			t.Fatalf("RecentCompletions failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 record, got %d", len(got))
		}
	})

	t.Run("nil logger discards", func(t *testing.T) {
		var nilLogger *CompletionLogger
		if err := nilLogger.LogCompletion(ctx, Entry{Operation: "x"}); err != nil {
			t.Errorf("Expected nil logger to discard, got: %v", err)
		}
	})
}
