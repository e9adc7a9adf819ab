package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/flowcanvas/internal/config"
	"github.com/recera/flowcanvas/internal/scenario"
	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/debug"
	"github.com/recera/flowcanvas/pkg/render"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// globals shared by every subcommand
type globals struct {
	configPath string
	logLevel   string
}

func main() {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:   "flowcanvas",
		Short: "Flow canvas editor engine",
		Long: `flowcanvas runs the node-graph canvas engine: a live WebSocket server
for browser hosts, a scripted gesture replayer, and a terminal board viewer.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setupLogging()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "flowcanvas.yaml", "Config file (.yaml, .toml or .json)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newReplayCommand(g))
	rootCmd.AddCommand(newTUICommand(g))
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globals) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", g.logLevel, err)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	debug.EnableLogging(level)
	return nil
}

func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", g.configPath, err)
	}
	return cfg, nil
}

// boardOptions returns the configured canvas options, seeded with the nodes
// and edges of a scenario file when path is set.
func boardOptions(cfg *config.Config, path string) (canvas.Options, error) {
	opts := cfg.CanvasOptions()
	if path == "" {
		return opts, nil
	}
	s, err := scenario.Load(path)
	if err != nil {
		return opts, err
	}
	opts.Nodes, opts.Edges = s.Nodes, s.Edges
	if s.Viewport != nil {
		opts.Viewport.Default = *s.Viewport
	}
	return opts, nil
}

// sceneFor sizes a snapshot for PNG output, using the configured size when
// the snapshot has no canvas rectangle.
func sceneFor(s canvas.Snapshot, rc config.RenderConfig) render.Scene {
	if s.Rect.Width > 0 && s.Rect.Height > 0 {
		return render.NewScene(s)
	}
	return render.Scene{Width: rc.Width, Height: rc.Height, Snapshot: s}
}
