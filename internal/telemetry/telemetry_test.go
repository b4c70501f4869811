package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := NewMetrics()

	m.ObserveCompletion("chat.intent", "text", 0.5, 100, 20)
	m.ObserveCompletion("chat.intent", "error", 0.1, 0, 0)
	m.ObserveFunction("NpcGenerateQuick", "npc", "")
	m.ObserveFunction("NpcGenerateQuick", "npc", "empty_output")

	if n := testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("chat.intent", "text")); n != 1 {
		t.Errorf("Expected 1 text completion, got %v", n)
	}
	if n := testutil.ToFloat64(m.TokensInput); n != 100 {
		t.Errorf("Expected 100 input tokens, got %v", n)
	}
	if n := testutil.ToFloat64(m.FunctionCalls.WithLabelValues("NpcGenerateQuick", "npc")); n != 2 {
		t.Errorf("Expected 2 function calls, got %v", n)
	}
	if n := testutil.ToFloat64(m.FunctionErrors.WithLabelValues("NpcGenerateQuick", "empty_output")); n != 1 {
		t.Errorf("Expected 1 function error, got %v", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveCompletion("x", "text", 1, 1, 1)
	m.ObserveFunction("x", "y", "z")
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveFunction("WorldGenerateTown", "mcp", "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `chatdragon_function_calls_total{caller="mcp",function="WorldGenerateTown"} 1`) {
		t.Errorf("Expected function counter in exposition, got:\n%s", body)
	}
}
