package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatdragon/internal/actors"
)

// npcCardPrefix marks a message that is an already rendered NPC card.
const npcCardPrefix = "\x00card:"

func (m Model) View() string {
	inputHeight := 3
	chatHeight := m.height - inputHeight

	messageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	userStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	debugStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("6"))

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(m.width - 4)

	chatPanel := lipgloss.NewStyle().
		Width(m.width).
		Height(chatHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1)

	contentWidth := m.width - 4

	var lines []string
	for _, message := range m.messages {
		switch {
		case message == "":
			lines = append(lines, "")
		case strings.HasPrefix(message, npcCardPrefix):
			lines = append(lines, strings.Split(strings.TrimPrefix(message, npcCardPrefix), "\n")...)
		case strings.HasPrefix(message, "> "):
			lines = append(lines, userStyle.Render(wrapAndIndent(message, contentWidth, " ")))
		case strings.HasPrefix(message, "[DEBUG] "):
			lines = append(lines, debugStyle.Render(wrapAndIndent(message, contentWidth, " ")))
		case strings.HasPrefix(message, "Error: "):
			lines = append(lines, errorStyle.Render(wrapAndIndent(message, contentWidth, " ")))
		case message == loadingMarker:
			lines = append(lines, loadingStyle.Render(wrapAndIndent(getLoadingAnimation(m.animationFrame), contentWidth, " ")))
		default:
			lines = append(lines, messageStyle.Render(wrapAndIndent(message, contentWidth, " ")))
		}
	}

	maxLines := chatHeight - 2
	if maxLines < 1 {
		maxLines = 1
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	var chatContent strings.Builder
	for i := len(lines); i < maxLines; i++ {
		chatContent.WriteString("\n")
	}
	for _, line := range lines {
		chatContent.WriteString(line + "\n")
	}

	chat := chatPanel.Render(chatContent.String())
	input := inputStyle.Render(m.input + "│")

	return chat + "\n" + input
}

func (m Model) cardWidth() int {
	width := m.width - 8
	if width > 72 {
		width = 72
	}
	if width < 30 {
		width = 30
	}
	return width
}

// renderNPCCard lays a character out as a bordered card.
func renderNPCCard(npc *actors.NonPlayerCharacter, width int) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("13")).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14")).
		Bold(true)

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("13")).
		Padding(0, 1).
		Width(width)

	var b strings.Builder
	b.WriteString(titleStyle.Render(npc.Name))

	var subtitle []string
	for _, s := range []string{npc.Race, npc.Gender, npc.Age.String(), npc.Occupation, npc.Alignment} {
		if s != "" {
			subtitle = append(subtitle, s)
		}
	}
	if len(subtitle) > 0 {
		b.WriteString("\n" + subtitleStyle.Render(strings.Join(subtitle, " · ")))
	}

	sections := []struct {
		label string
		text  string
	}{
		{"Appearance", npc.Appearance},
		{"Personality", npc.Personality},
		{"Background", npc.Background},
		{"Motivation", npc.Motivation},
		{"Quirk", npc.Quirk},
		{"Secret", npc.Secret},
	}
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		b.WriteString("\n\n" + labelStyle.Render(s.label) + "\n" + wrapAndIndent(s.text, width-2, ""))
	}

	return cardStyle.Render(b.String())
}

func wrapAndIndent(text string, width int, indent string) string {
	if len(text) <= width {
		return indent + text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	currentLine := indent + words[0]

	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}

	result.WriteString(currentLine)
	return result.String()
}

func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
