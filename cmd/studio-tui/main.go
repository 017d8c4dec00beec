// Command studio-tui is a terminal dashboard over one project's tasks,
// built the same way cmd/lattice/main.go launches The-Lattice's
// bubbletea program: resolve the working directory, open the domain
// context, then run tea.NewProgram with the alternate screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/engine"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/project"
	"github.com/souky-byte/opencode-studio/internal/tui"
)

var directory = flag.String("directory", "", "Project directory to open")

func main() {
	flag.Parse()

	logging.Init(logging.Config{Level: logging.FatalLevel, Output: os.Stderr})

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "get working directory: %v\n", err)
			os.Exit(1)
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		fmt.Fprintf(os.Stderr, "create data directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load project configuration: %v\n", err)
		os.Exit(1)
	}

	backend := opencodeclient.New(opencodeclient.Config{BaseURL: cfg.BackendURL, APIKey: cfg.APIKey})
	bus := event.New()
	manager := project.NewManager(bus, engine.NewExecutorFactory(backend))

	openCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pctx, err := manager.Open(openCtx, workDir)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "open project at %s: %v\n", workDir, err)
		os.Exit(1)
	}
	defer manager.Close()

	app := tui.NewApp(pctx)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}
