package postprocess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type recorder struct {
	mu      sync.Mutex
	seen    []string
	fail    map[string]bool
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Process(_ context.Context, path string) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxSeen.Load()
		if n <= m || r.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	r.mu.Lock()
	r.seen = append(r.seen, path)
	r.mu.Unlock()
	if r.fail[path] {
		return errors.New("tool crashed")
	}
	return nil
}

func TestRun_FailuresAreNonFatal(t *testing.T) {
	paths := []string{"a.png", "b.png", "c.png", "d.png", "e.png"}
	rec := &recorder{fail: map[string]bool{"b.png": true, "d.png": true}}

	failures := Run(context.Background(), rec, paths, 2)
	if len(rec.seen) != len(paths) {
		t.Errorf("processed %d paths, want %d", len(rec.seen), len(paths))
	}
	if len(failures) != 2 || failures[0].Path != "b.png" || failures[1].Path != "d.png" {
		t.Errorf("failures = %v", failures)
	}
	if got := rec.maxSeen.Load(); got > 2 {
		t.Errorf("saw %d concurrent calls, limit was 2", got)
	}
}

func TestRun_NoopSkips(t *testing.T) {
	if f := Run(context.Background(), Noop{}, []string{"a.png"}, 4); f != nil {
		t.Errorf("Noop produced failures: %v", f)
	}
}

func TestSelect(t *testing.T) {
	p, err := Select(Settings{}, "")
	if err != nil || !IsNoop(p) {
		t.Errorf("empty kind: %v, %v", p, err)
	}
	p, err = Select(Settings{Kind: KindExec, Tool: "definitely-not-a-real-tool-xyz"}, t.TempDir())
	if err != nil || !IsNoop(p) {
		t.Errorf("missing tool should fall back to Noop: %v, %v", p, err)
	}
	if _, err := Select(Settings{Kind: "magic"}, ""); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil { //nolint:gosec // test script must be executable
		t.Fatal(err)
	}
	return path
}

func TestDetect_InSourceDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "JPNGTool", "exit 0")

	path, ok := Detect(dir, "JPNGTool")
	if !ok {
		t.Fatal("tool not detected")
	}
	if filepath.Base(path) != "JPNGTool" || !filepath.IsAbs(path) {
		t.Errorf("path = %q", path)
	}

	p, err := Select(Settings{Kind: KindExec, Tool: "JPNGTool"}, dir)
	if err != nil || IsNoop(p) {
		t.Errorf("Select = %v, %v", p, err)
	}
}

func TestDetect_RelativePathIsMadeAbsolute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "JPNGTool", "exit 0")
	t.Chdir(dir)

	path, ok := Detect("", "./JPNGTool")
	if !ok {
		t.Fatal("tool not detected")
	}
	if !filepath.IsAbs(path) || filepath.Base(path) != "JPNGTool" {
		t.Errorf("path = %q, want absolute", path)
	}
}

func TestExec_Process(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	toolDir, pieceDir := t.TempDir(), t.TempDir()
	tool := writeScript(t, toolDir, "stamp", `echo recompressed > "$1.out"`)

	piece := filepath.Join(pieceDir, "cat-row0-col0.png")
	if err := os.WriteFile(piece, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := &Exec{Tool: tool, RemoveOriginal: true}
	if err := e.Process(context.Background(), piece); err != nil {
		t.Fatalf("Process: %v", err)
	}
	b, err := os.ReadFile(piece + ".out")
	if err != nil {
		t.Fatalf("tool output missing: %v", err)
	}
	if strings.TrimSpace(string(b)) != "recompressed" {
		t.Errorf("tool output = %q", b)
	}
	if _, err := os.Stat(piece); !errors.Is(err, os.ErrNotExist) {
		t.Error("original piece should have been removed")
	}
}

func TestExec_ProcessFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	tool := writeScript(t, dir, "broken", "echo nope; exit 3")
	piece := filepath.Join(dir, "p.png")
	if err := os.WriteFile(piece, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	err := (&Exec{Tool: tool, RemoveOriginal: true}).Process(context.Background(), piece)
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(piece); err != nil {
		t.Error("original piece must survive a failed run")
	}
}
