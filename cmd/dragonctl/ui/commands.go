package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 3 * time.Minute

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func getIntentCmd(backend Backend, ask string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := backend.GetIntent(ctx, ask)
		return intentResultMsg{ask: ask, result: result, err: err}
	}
}

func generateNPCCmd(backend Backend, ask string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		npc, err := backend.GenerateQuickNPC(ctx, ask)
		return npcResultMsg{npc: npc, err: err}
	}
}

func listToolsCmd(tools Tools) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := tools.ListTools(ctx)
		return toolResultMsg{title: "Tools", result: result, err: err}
	}
}

func callToolCmd(tools Tools, name, input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := tools.CallTool(ctx, name, input)
		return toolResultMsg{title: name, result: result, err: err}
	}
}

// command is a parsed input line.
type command struct {
	name string // "" for a plain ask
	args string
}

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{args: line}
	}

	name, args, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}
}
