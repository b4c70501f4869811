package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"chatdragon/internal/actors"
)

type fakeBackend struct{}

func (fakeBackend) GetIntent(ctx context.Context, ask string) (string, error) {
	return "result for " + ask, nil
}

func (fakeBackend) GenerateQuickNPC(ctx context.Context, ask string) (*actors.NonPlayerCharacter, error) {
	return &actors.NonPlayerCharacter{Name: "Borin", Race: "Dwarf", Quirk: "Taps his hammer."}, nil
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	next, cmd := next.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want command
	}{
		{"what is the weather", command{args: "what is the weather"}},
		{"/npc  a grumpy dwarf ", command{name: "npc", args: "a grumpy dwarf"}},
		{"/HELP", command{name: "help"}},
		{"/call WorldGenerateTown a port", command{name: "call", args: "WorldGenerateTown a port"}},
	}
	for _, tc := range cases {
		if got := parseCommand(tc.in); got != tc.want {
			t.Errorf("parseCommand(%q): expected %+v, got %+v", tc.in, tc.want, got)
		}
	}
}

func TestAskFlow(t *testing.T) {
	m := NewModel(fakeBackend{}, nil, nil)

	m, cmd := typeLine(t, m, "build a town")
	if !m.loading || cmd == nil {
		t.Fatal("Expected loading state with a pending command")
	}
	if m.messages[len(m.messages)-1] != loadingMarker {
		t.Error("Expected loading marker")
	}

	next, _ := m.Update(intentResultMsg{ask: "build a town", result: "result for build a town"})
	m = next.(Model)
	if m.loading {
		t.Error("Expected loading to stop")
	}
	joined := strings.Join(m.messages, "\n")
	if !strings.Contains(joined, "result for build a town") || strings.Contains(joined, loadingMarker) {
		t.Errorf("Unexpected transcript:\n%s", joined)
	}

	next, _ = m.Update(intentResultMsg{err: errors.New("server returned 502")})
	if !strings.Contains(strings.Join(next.(Model).messages, "\n"), "Error: server returned 502") {
		t.Error("Expected error line")
	}
}

func TestNPCCommand(t *testing.T) {
	m := NewModel(fakeBackend{}, nil, nil)
	m.width, m.height = 100, 40

	m, cmd := typeLine(t, m, "/npc a dwarf")
	if cmd == nil {
		t.Fatal("Expected a command for /npc")
	}

	npc, _ := fakeBackend{}.GenerateQuickNPC(context.Background(), "a dwarf")
	next, _ := m.Update(npcResultMsg{npc: npc})
	view := next.(Model).View()
	for _, want := range []string{"Borin", "Dwarf", "Quirk", "Taps his hammer."} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view", want)
		}
	}
}

func TestToolsUnavailable(t *testing.T) {
	m := NewModel(fakeBackend{}, nil, nil)

	m, cmd := typeLine(t, m, "/tools")
	if cmd != nil || m.loading {
		t.Error("Expected no request when MCP is unavailable")
	}
	if !strings.Contains(strings.Join(m.messages, "\n"), "MCP tools are not available") {
		t.Error("Expected notice about MCP")
	}
}
