package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chatdragon/internal/config"
	"chatdragon/internal/logging"
)

// runReview prints the most recent completion log records.
func runReview(cfg *config.Config, limitArg string) error {
	if cfg.CompletionLog.Path == "" {
		return errors.New("completion log is disabled (set completion_log.path or CHATDRAGON_COMPLETION_LOG)")
	}

	limit := 10
	if limitArg != "" {
		n, err := strconv.Atoi(limitArg)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid record count %q", limitArg)
		}
		limit = n
	}

	logger, err := logging.NewCompletionLogger(cfg.CompletionLog.Path)
	if err != nil {
		return fmt.Errorf("failed to open completion database: %w", err)
	}
	defer logger.Close()

	completions, err := logger.RecentCompletions(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to get completions: %w", err)
	}

	if len(completions) == 0 {
		fmt.Println("No completions found. Send a request first to generate data!")
		return nil
	}

	fmt.Printf("Recent completions (%d):\n\n", len(completions))

	for _, comp := range completions {
		label := comp.Operation
		if comp.Function != "" {
			label += " " + comp.Function
		}

		var metadata logging.CompletionMetadata
		if err := json.Unmarshal([]byte(comp.Metadata), &metadata); err == nil {
			fmt.Printf("[%d] %s | %s | %v | %d/%d tokens | %s\n",
				comp.ID,
				comp.Timestamp.Format("15:04:05"),
				label,
				metadata.ResponseTime,
				metadata.InputTokens,
				metadata.OutputTokens,
				comp.RequestID)
			if metadata.Error != nil {
				fmt.Printf("Error: %s\n", *metadata.Error)
			}
		} else {
			fmt.Printf("[%d] %s | %s\n", comp.ID, comp.Timestamp.Format("15:04:05"), label)
		}

		fmt.Printf("Input: %s\n", comp.Input)
		fmt.Printf("Response: %s", comp.Response)
		fmt.Println("\n" + strings.Repeat("-", 50))
	}

	return nil
}
