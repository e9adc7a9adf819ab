package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/recera/flowcanvas/internal/config"
	"github.com/recera/flowcanvas/internal/scenario"
	"github.com/recera/flowcanvas/pkg/render"
)

var errReplayFailed = errors.New("replay: scenarios failed")

type replayer struct {
	cfg    *config.Config
	pngDir string
	theme  render.Theme
	out    io.Writer

	pass *color.Color
	fail *color.Color
	dim  *color.Color
}

func newReplayCommand(g *globals) *cobra.Command {
	var pngDir string
	var themeName string
	var watch bool

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml|dir>...",
		Short: "Replay scripted gestures and check the resulting board",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if themeName == "" {
				themeName = cfg.Render.Theme
			}
			theme, err := render.ThemeByName(themeName)
			if err != nil {
				return err
			}
			paths, err := expandScenarios(args)
			if err != nil {
				return err
			}
			r := newReplayer(cfg, cmd.OutOrStdout(), theme, pngDir)
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return r.watch(ctx, paths)
			}
			return r.runAll(paths)
		},
	}

	cmd.Flags().StringVar(&pngDir, "png", "", "Directory to write a PNG of each final board into")
	cmd.Flags().StringVar(&themeName, "theme", "", "PNG theme: light or dark (defaults to the config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run a scenario whenever its file changes")

	return cmd
}

func newReplayer(cfg *config.Config, out io.Writer, theme render.Theme, pngDir string) *replayer {
	return &replayer{
		cfg:    cfg,
		pngDir: pngDir,
		theme:  theme,
		out:    out,
		pass:   color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
	}
}

// expandScenarios replaces directories with the .yaml files they contain.
func expandScenarios(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			m, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			paths = append(paths, m...)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", strings.Join(args, ", "))
	}
	return paths, nil
}

func (r *replayer) runAll(paths []string) error {
	failed := 0
	for _, path := range paths {
		if ok := r.runOne(path); !ok {
			failed++
		}
	}
	fmt.Fprintf(r.out, "\n%d passed, %d failed\n", len(paths)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errReplayFailed, failed, len(paths))
	}
	return nil
}

// runOne replays one file and prints its verdict.
func (r *replayer) runOne(path string) bool {
	start := time.Now()
	s, err := scenario.Load(path)
	if err != nil {
		r.fail.Fprint(r.out, "ERROR ")
		fmt.Fprintf(r.out, "%s: %v\n", path, err)
		return false
	}
	res, err := scenario.Run(s, r.cfg.CanvasOptions())
	if err != nil {
		r.fail.Fprint(r.out, "ERROR ")
		fmt.Fprintf(r.out, "%s: %v\n", path, err)
		return false
	}

	name := res.Name
	if name == "" {
		name = filepath.Base(path)
	}
	if res.OK() {
		r.pass.Fprint(r.out, "PASS  ")
	} else {
		r.fail.Fprint(r.out, "FAIL  ")
	}
	fmt.Fprint(r.out, name)
	r.dim.Fprintf(r.out, "  %d steps, %d frames, %s\n", res.Steps, res.Frames, time.Since(start).Round(time.Microsecond))
	for _, f := range res.Failures {
		fmt.Fprintf(r.out, "      %s\n", f)
	}

	if r.pngDir != "" {
		if err := r.writePNG(path, res); err != nil {
			r.fail.Fprint(r.out, "ERROR ")
			fmt.Fprintf(r.out, "%s: %v\n", path, err)
			return false
		}
	}
	return res.OK()
}

func (r *replayer) writePNG(path string, res *scenario.Result) error {
	if err := os.MkdirAll(r.pngDir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".png"
	f, err := os.Create(filepath.Join(r.pngDir, name))
	if err != nil {
		return err
	}
	if err := render.PNG(f, sceneFor(res.Snapshot, r.cfg.Render), r.theme); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
