package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recera/flowcanvas/internal/config"
	"github.com/recera/flowcanvas/pkg/live"
	"github.com/recera/flowcanvas/pkg/render"
)

const fixtures = "../../internal/scenario/testdata"

func TestExpandScenarios(t *testing.T) {
	paths, err := expandScenarios([]string{fixtures})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) < 5 {
		t.Errorf("found %d scenarios, want at least 5", len(paths))
	}

	if _, err := expandScenarios([]string{t.TempDir()}); err == nil {
		t.Error("expected an error for an empty directory")
	}
	if _, err := expandScenarios([]string{filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestReplayFixtures(t *testing.T) {
	paths, err := expandScenarios([]string{fixtures})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	dir := t.TempDir()
	r := newReplayer(config.Default(), &out, render.Dark(), dir)
	if err := r.runAll(paths); err != nil {
		t.Fatalf("runAll: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "PASS") || strings.Contains(out.String(), "FAIL") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	f, err := os.Open(filepath.Join(dir, "connect.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1000 || b.Dy() != 800 {
		t.Errorf("png size = %v, want the scenario rect", b)
	}
}

func TestReplayReportsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "name: bad\nnodes:\n  - {id: A, type: default, position: {x: 0, y: 0}}\nsteps:\n  - down: [10, 10]\nexpect:\n  edges: 3\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(broken, []byte("steps: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	r := newReplayer(config.Default(), &out, render.Light(), "")
	err := r.runAll([]string{path, broken})
	if !errors.Is(err, errReplayFailed) {
		t.Fatalf("err = %v, want errReplayFailed", err)
	}
	got := out.String()
	for _, want := range []string{"FAIL", "edges:", "ERROR", "0 passed, 2 failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestBoardOptions(t *testing.T) {
	cfg := config.Default()
	opts, err := boardOptions(cfg, "")
	if err != nil || len(opts.Nodes) != 0 {
		t.Fatalf("empty board: %v, %d nodes", err, len(opts.Nodes))
	}
	opts, err = boardOptions(cfg, filepath.Join(fixtures, "pan.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Nodes) == 0 {
		t.Error("scenario nodes not loaded")
	}
	if _, err := boardOptions(cfg, "missing.yaml"); err == nil {
		t.Error("expected an error for a missing board")
	}
}

func TestMux(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Width, cfg.Render.Height = 200, 100
	opts, err := boardOptions(cfg, filepath.Join(fixtures, "connect.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	srv := newLiveServer(cfg, opts)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(newMux(cfg, srv))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/render/s1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("render before connect = %d, want 404", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := live.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+cfg.Server.Path+"s1")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	m, err := c.Next(ctx, live.MsgSnapshot)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Snapshot.Nodes) != 2 {
		t.Errorf("session board has %d nodes, want 2", len(m.Snapshot.Nodes))
	}

	resp, err = http.Get(ts.URL + "/render/s1?theme=dark")
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("png size = %v, want the configured 200x100", b)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Sessions != 1 {
		t.Errorf("health = %+v", health)
	}
}
