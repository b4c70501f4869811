package llm

import (
	"encoding/json"
	"testing"

	"github.com/openai/openai-go"
)

func decodeFixture(t *testing.T, body string) Reply {
	t.Helper()
	var resp openai.ChatCompletion
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Failed to unmarshal fixture: %v", err)
	}
	return DecodeReply(&resp)
}

func TestDecodeReply(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		reply := decodeFixture(t, `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[
			{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"It looks like rain."}}]}`)

		text, ok := reply.(ReplyText)
		if !ok {
			t.Fatalf("Expected ReplyText, got %T", reply)
		}
		if text.Text != "It looks like rain." {
			t.Errorf("Expected text %q, got %q", "It looks like rain.", text.Text)
		}
		if reply.Kind() != "text" {
			t.Errorf("Expected kind text, got %s", reply.Kind())
		}
	})

	t.Run("empty text is still text", func(t *testing.T) {
		reply := decodeFixture(t, `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[
			{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":""}}]}`)

		if _, ok := reply.(ReplyText); !ok {
			t.Fatalf("Expected ReplyText, got %T", reply)
		}
	})

	t.Run("function calls keep model order", func(t *testing.T) {
		reply := decodeFixture(t, `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[
			{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,"tool_calls":[
				{"id":"call_a","type":"function","function":{"name":"NpcGenerateQuick","arguments":"{\"input\":\"a dwarf\"}"}},
				{"id":"call_b","type":"function","function":{"name":"WorldGenerateTown","arguments":"{}"}}]}}]}`)

		calls, ok := reply.(ReplyFunctionCall)
		if !ok {
			t.Fatalf("Expected ReplyFunctionCall, got %T", reply)
		}
		if len(calls.Calls) != 2 {
			t.Fatalf("Expected 2 calls, got %d", len(calls.Calls))
		}
		first := calls.First()
		if first.ID != "call_a" || first.Name != "NpcGenerateQuick" {
			t.Errorf("Expected first call call_a/NpcGenerateQuick, got %s/%s", first.ID, first.Name)
		}
		if first.Arguments != `{"input":"a dwarf"}` {
			t.Errorf("Expected raw arguments to be preserved, got %q", first.Arguments)
		}
	})

	malformed := []struct {
		name string
		body string
	}{
		{
			name: "no choices",
			body: `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[]}`,
		},
		{
			name: "refusal",
			body: `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[
				{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":null,"refusal":"I can't help with that."}}]}`,
		},
		{
			name: "function call without a name",
			body: `{"id":"c1","object":"chat.completion","model":"gpt-4o","choices":[
				{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","tool_calls":[
					{"id":"call_a","type":"function","function":{"name":"  ","arguments":"{}"}}]}}]}`,
		},
	}
	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			reply := decodeFixture(t, tc.body)
			m, ok := reply.(ReplyMalformed)
			if !ok {
				t.Fatalf("Expected ReplyMalformed, got %T", reply)
			}
			if m.Reason == "" {
				t.Error("Expected a reason on malformed reply")
			}
		})
	}

	t.Run("nil completion", func(t *testing.T) {
		if _, ok := DecodeReply(nil).(ReplyMalformed); !ok {
			t.Error("Expected nil completion to decode as malformed")
		}
	})
}
