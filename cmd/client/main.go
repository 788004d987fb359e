package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hersh/towerrelay/internal/netclient"
	"github.com/hersh/towerrelay/internal/tui"
	"go.uber.org/zap"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:3000/ws", "relay WebSocket address")
	playerName := flag.String("name", "", "Player name (defaults to OS username)")
	logFile := flag.String("log", "", "write client logs to this file")
	flag.Parse()

	name := *playerName
	if name == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		} else {
			name = "Player"
		}
	}

	logger, err := clientLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", *logFile, err)
		os.Exit(1)
	}
	defer logger.Sync()

	client, err := netclient.New(*serverAddr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to relay at %s: %v\n", *serverAddr, err)
		fmt.Fprintf(os.Stderr, "Make sure the relay is running (go run ./cmd/server)\n")
		os.Exit(1)
	}
	defer client.Close()

	p := tea.NewProgram(tui.NewModel(name, client), tea.WithAltScreen())

	// relay events reach the program once it is attached
	client.SetProgram(p)
	client.Start()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// clientLogger keeps logs off the terminal the TUI draws on.
func clientLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
