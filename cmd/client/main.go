package main

import (
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/driftline/driftline/internal/client"
	"github.com/driftline/driftline/internal/config"
)

func main() {
	cfg := config.LoadClientConfig()

	fs := pflag.NewFlagSet("driftline-client", pflag.ContinueOnError)
	var (
		serverURL = fs.StringP("server-url", "s", cfg.ServerURL, "relay server websocket url")
		room      = fs.StringP("room", "r", cfg.Room, "room to join")
		username  = fs.StringP("username", "u", cfg.Username, "display name")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	cfg.ServerURL = *serverURL
	cfg.Room = *room
	cfg.Username = *username

	model := client.NewApp(cfg)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("client exited: %v", err)
	}
}
