package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"chatdragon/internal/actors"
	"chatdragon/internal/debug"
)

// Backend is the ChatDragon HTTP API as seen by the terminal client.
type Backend interface {
	GetIntent(ctx context.Context, ask string) (string, error)
	GenerateQuickNPC(ctx context.Context, ask string) (*actors.NonPlayerCharacter, error)
}

// Tools is the MCP tool surface. It may be nil when the server has MCP
// disabled.
type Tools interface {
	ListTools(ctx context.Context) (string, error)
	CallTool(ctx context.Context, name, input string) (string, error)
}

type Model struct {
	messages       []string
	input          string
	width          int
	height         int
	loading        bool
	animationFrame int

	backend     Backend
	tools       Tools
	debugLogger *debug.Logger
}

func NewModel(backend Backend, tools Tools, debugLogger *debug.Logger) Model {
	messages := []string{
		"Ask ChatDragon anything. /npc <description> creates a character, /help lists commands.",
		"",
	}
	if debugLogger.IsEnabled() {
		messages = append(messages, "[DEBUG] Debug logging enabled", "")
	}

	return Model{
		messages:    messages,
		backend:     backend,
		tools:       tools,
		debugLogger: debugLogger,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

type animationTickMsg struct{}

type intentResultMsg struct {
	ask    string
	result string
	err    error
}

type npcResultMsg struct {
	npc *actors.NonPlayerCharacter
	err error
}

type toolResultMsg struct {
	title  string
	result string
	err    error
}
