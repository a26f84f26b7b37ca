package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"

	"github.com/vctt94/ohhell/pkg/client"
	"github.com/vctt94/ohhell/pkg/ui"
)

func main() {
	var (
		serverURL  string
		nickname   string
		debugLevel string
	)
	flag.StringVar(&serverURL, "server", "http://127.0.0.1:3000", "Server base URL")
	flag.StringVar(&nickname, "nick", "", "Nickname (prompted if empty)")
	flag.StringVar(&debugLevel, "debuglevel", "warn", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	backend := slog.NewBackend(os.Stderr)
	log := backend.Logger("CLI")
	if level, ok := slog.LevelFromString(debugLevel); ok {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := client.New(client.Config{ServerURL: serverURL, Log: log})
	defer c.Close()

	model := ui.New(ctx, c, nickname)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ui error: %v\n", err)
		os.Exit(1)
	}
}
