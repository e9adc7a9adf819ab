package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/flowcanvas/internal/config"
	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/live"
	"github.com/recera/flowcanvas/pkg/render"
)

func newServeCommand(g *globals) *cobra.Command {
	var host string
	var port int
	var boardPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live canvas sessions over WebSocket",
		Long: `Starts an HTTP server that hosts one canvas per session id. Browser hosts
stream pointer, wheel, touch and key events and receive snapshots back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			// CLI flags take precedence over the file
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			opts, err := boardOptions(cfg, boardPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&boardPath, "board", "", "Scenario file whose nodes and edges seed every new session")

	return cmd
}

func newLiveServer(cfg *config.Config, opts canvas.Options) *live.Server {
	return live.NewServer(live.Options{
		Path:           cfg.Server.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		FrameInterval:  cfg.Server.FrameInterval.Duration,
		Board: func(id string) canvas.Options {
			o := opts
			o.Nodes, o.Edges = slices.Clone(opts.Nodes), slices.Clone(opts.Edges)
			return o
		},
		Sync: func(id string, nodes []flow.Node, edges []flow.Edge) {
			slog.Debug("board changed", "session", id, "nodes", len(nodes), "edges", len(edges))
		},
	})
}

// newMux routes the live endpoint plus the render and health handlers.
func newMux(cfg *config.Config, srv *live.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(srv.Path(), srv)

	mux.HandleFunc("GET /render/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := srv.GetSession(r.PathValue("id"))
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		theme, err := render.ThemeByName(r.URL.Query().Get("theme"))
		if err != nil {
			theme, _ = render.ThemeByName(cfg.Render.Theme)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := render.PNG(w, sceneFor(sess.Snapshot(), cfg.Render), theme); err != nil {
			slog.Error("render failed", "session", sess.ID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"sessions": srv.SessionCount(),
		})
	})
	return mux
}

func runServe(ctx context.Context, cfg *config.Config, opts canvas.Options) error {
	srv := newLiveServer(cfg, opts)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newMux(cfg, srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving live canvas", "addr", "http://"+httpSrv.Addr, "path", srv.Path(),
			"frameInterval", cfg.Server.FrameInterval.Duration)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
