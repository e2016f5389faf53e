package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/logging"
)

// ANSI escape codes for colored output.
const (
	bold   = "\033[1m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	red    = "\033[31m"
	reset  = "\033[0m"
)

// truncateText shortens a string to the given max length, appending "..." if
// truncation occurs. It also replaces newlines with spaces for single-line display.
func truncateText(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// writeOutput renders data as JSON (if --json flag is set) or invokes
// the human-readable callback.
func writeOutput(cmd *cobra.Command, data any, humanFn func()) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.Encode(data)
		return
	}
	humanFn()
}

// printf writes human-readable output to the command's stdout.
func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// consoleLogger is used until the environment's logging section is known.
func consoleLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.Console(cmd.ErrOrStderr(), verbose)
}

// loadDocument reads the file named by --config.
func loadDocument(cmd *cobra.Command) (config.Document, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// loadEnvironment reads, validates and decodes the environment named by
// --environment.
func loadEnvironment(cmd *cobra.Command, logger *slog.Logger) (config.Environment, string, error) {
	name, _ := cmd.Flags().GetString("environment")
	doc, err := loadDocument(cmd)
	if err != nil {
		return config.Environment{}, name, err
	}
	env, err := config.ResolveEnvironment(doc, name, logger)
	return env, name, err
}

// contextWithTimeout bounds a one-shot command.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
