// dragonctl is a terminal client for a running ChatDragon server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chatdragon/cmd/dragonctl/ui"
	"chatdragon/internal/api"
	"chatdragon/internal/debug"
	"chatdragon/internal/mcp"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "ChatDragon base URL")
	debugMode := flag.Bool("debug", false, "write debug output to dragonctl-debug.log")
	flag.Parse()

	debugLogger := debug.NewLogger(*debugMode, "dragonctl-debug.log")
	defer debugLogger.Close()

	backend := api.NewClient(*addr, 3*time.Minute)

	var tools ui.Tools
	toolClient := mcp.NewToolClient()
	// The SSE stream lives as long as the connect context.
	if err := toolClient.Connect(context.Background(), strings.TrimSuffix(*addr, "/")+"/mcp"); err != nil {
		debugLogger.Printf("MCP tools unavailable: %v", err)
	} else {
		tools = toolClient
		defer toolClient.Close()
	}

	p := tea.NewProgram(ui.NewModel(backend, tools, debugLogger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
