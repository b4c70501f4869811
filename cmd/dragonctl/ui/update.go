package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const loadingMarker = "LOADING_ANIMATION"

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case intentResultMsg:
		return m.handleIntentResult(msg)
	case npcResultMsg:
		return m.handleNPCResult(msg)
	case toolResultMsg:
		return m.handleToolResult(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			return m, animationTimer()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleIntentResult(msg intentResultMsg) (tea.Model, tea.Cmd) {
	m = m.stopLoading()
	switch {
	case msg.err != nil:
		m.messages = append(m.messages, fmt.Sprintf("Error: %v", msg.err))
	case msg.result == "":
		m.messages = append(m.messages, "(no matching intent)")
	default:
		m.messages = append(m.messages, strings.Split(msg.result, "\n")...)
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m Model) handleNPCResult(msg npcResultMsg) (tea.Model, tea.Cmd) {
	m = m.stopLoading()
	if msg.err != nil {
		m.messages = append(m.messages, fmt.Sprintf("Error: %v", msg.err))
	} else {
		m.messages = append(m.messages, npcCardPrefix+renderNPCCard(msg.npc, m.cardWidth()))
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m Model) handleToolResult(msg toolResultMsg) (tea.Model, tea.Cmd) {
	m = m.stopLoading()
	if msg.err != nil {
		m.messages = append(m.messages, fmt.Sprintf("Error: %v", msg.err))
	} else {
		m.messages = append(m.messages, "["+msg.title+"]")
		m.messages = append(m.messages, strings.Split(msg.result, "\n")...)
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m Model) stopLoading() Model {
	if m.loading && len(m.messages) > 0 && m.messages[len(m.messages)-1] == loadingMarker {
		m.messages = m.messages[:len(m.messages)-1]
	}
	m.loading = false
	return m
}

func (m Model) startLoading(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.animationFrame = 0
	m.messages = append(m.messages, loadingMarker)
	return m, tea.Batch(cmd, animationTimer())
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		if strings.TrimSpace(m.input) == "" || m.loading {
			return m, nil
		}
		line := m.input
		m.input = ""
		m.messages = append(m.messages, "> "+line)
		m.debugLogger.Printf("Input: %q", line)
		return m.runCommand(parseCommand(line))

	case "backspace":
		if len(m.input) > 0 && !m.loading {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes && !m.loading {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace && !m.loading {
			m.input += " "
		}
		return m, nil
	}
}

func (m Model) runCommand(cmd command) (tea.Model, tea.Cmd) {
	switch cmd.name {
	case "":
		return m.startLoading(getIntentCmd(m.backend, cmd.args))

	case "npc":
		if cmd.args == "" {
			return m.notice("Usage: /npc <description>")
		}
		return m.startLoading(generateNPCCmd(m.backend, cmd.args))

	case "tools":
		if m.tools == nil {
			return m.notice("MCP tools are not available")
		}
		return m.startLoading(listToolsCmd(m.tools))

	case "call":
		if m.tools == nil {
			return m.notice("MCP tools are not available")
		}
		name, input, _ := strings.Cut(cmd.args, " ")
		if name == "" {
			return m.notice("Usage: /call <tool> <input>")
		}
		return m.startLoading(callToolCmd(m.tools, name, strings.TrimSpace(input)))

	case "clear":
		m.messages = []string{}
		return m, nil

	case "quit", "exit":
		return m, tea.Quit

	case "help":
		m.messages = append(m.messages,
			"Available commands:",
			"  <text>               - classify the ask and run the matching function",
			"  /npc <description>   - generate a non-player character",
			"  /tools               - list the server's MCP tools",
			"  /call <tool> <input> - run an MCP tool directly",
			"  /clear               - clear the screen",
			"  /quit                - exit",
			"",
		)
		return m, nil

	default:
		return m.notice("Unknown command. Try /help")
	}
}

func (m Model) notice(text string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, text, "")
	return m, nil
}
