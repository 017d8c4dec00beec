// Package commands provides the studioctl CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/engine"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/project"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	workDirFlag string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "studioctl",
	Short: "studioctl drives the opencode-studio orchestrator from the command line",
	Long: `studioctl opens a project directly against its task database and
execution engine, the same resources studio-server exposes over HTTP.

Run 'studioctl task list' to see a project's tasks, or
'studioctl task execute <task-id>' to dispatch one.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Output: os.Stderr,
			Pretty: true,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDirFlag, "directory", "d", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("studioctl %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(taskCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// workDir resolves the --directory flag against the process's current
// working directory.
func workDir() (string, error) {
	if workDirFlag != "" {
		return workDirFlag, nil
	}
	return os.Getwd()
}

// openProject builds the same Manager/Executor wiring as studio-server
// and opens dir, so CLI and server drive one identical project context.
func openProject(ctx context.Context, dir string) (*project.Manager, *project.ProjectContext, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, nil, fmt.Errorf("create data directories: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load project configuration: %w", err)
	}

	backend := opencodeclient.New(opencodeclient.Config{
		BaseURL: cfg.BackendURL,
		APIKey:  cfg.APIKey,
	})

	bus := event.New()
	manager := project.NewManager(bus, engine.NewExecutorFactory(backend))

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pctx, err := manager.Open(openCtx, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open project at %s: %w", dir, err)
	}
	return manager, pctx, nil
}
