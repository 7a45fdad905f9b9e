package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/suykerbuyk/tracegraph/internal/catalog"
)

// fakeRenderer records the invocation instead of shelling out.
type fakeRenderer struct {
	dotPath string
	outPath string
	err     error
}

func (f *fakeRenderer) Render(_ context.Context, dotPath, outPath string) error {
	f.dotPath = dotPath
	f.outPath = outPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("<svg/>"), 0o644)
}

func writeTrace(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Hashes 1 and 9 differ by one bit and cluster together, 0xFFFF0000 stands
// apart; the two Click(Login) transitions map onto the same cluster pair,
// one deduplicated edge per direction.
const scenarioTrace = `{"hash_previous":null,"hash_current":1,"action":null}
{"hash_previous":1,"hash_current":4294901760,"action":{"Click":{"name":"Login"}}}
{"hash_previous":4294901760,"hash_current":9,"action":{"Click":{"name":"Login"}}}`

func TestBuild_EndToEnd(t *testing.T) {
	tracePath := writeTrace(t, scenarioTrace)
	outDir := filepath.Join(t.TempDir(), "out", "nested")
	r := &fakeRenderer{}

	res, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: 4,
		ImageName: "graph.svg",
		Renderer:  r,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.Clusters != 2 {
		t.Errorf("clusters = %d, want 2", res.Clusters)
	}
	if res.Edges != 2 {
		t.Errorf("edges = %d, want 2 (1→far and far→9 collapse per direction)", res.Edges)
	}
	if res.SelfLoops != 0 {
		t.Errorf("self loops = %d, want 0", res.SelfLoops)
	}
	if res.Hashes != 3 {
		t.Errorf("hashes = %d, want 3", res.Hashes)
	}

	data, err := os.ReadFile(res.DotPath)
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(data), "Click(Login)") {
		t.Errorf("dot output missing edge label:\n%s", data)
	}

	if r.dotPath != res.DotPath {
		t.Errorf("renderer got dot %q, want %q", r.dotPath, res.DotPath)
	}
	if res.ImagePath != filepath.Join(outDir, "graph.svg") {
		t.Errorf("image path = %q", res.ImagePath)
	}
}

func TestBuild_NoRender(t *testing.T) {
	tracePath := writeTrace(t, scenarioTrace)

	res, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    t.TempDir(),
		Threshold: 4,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.ImagePath != "" {
		t.Errorf("image path = %q, want empty without rendering", res.ImagePath)
	}
	if _, err := os.Stat(res.DotPath); err != nil {
		t.Errorf("dot file missing: %v", err)
	}
}

func TestBuild_RendererFailureIsFatal(t *testing.T) {
	tracePath := writeTrace(t, scenarioTrace)
	r := &fakeRenderer{err: errors.New("fdp: not found")}

	_, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    t.TempDir(),
		Threshold: 4,
		ImageName: "graph.svg",
		Renderer:  r,
	})
	if err == nil {
		t.Fatal("expected render failure to surface")
	}
}

func TestBuild_MissingTraceFails(t *testing.T) {
	_, err := Build(context.Background(), Options{
		TracePath: filepath.Join(t.TempDir(), "nope.jsonl"),
		OutDir:    t.TempDir(),
		Threshold: 4,
	})
	if err == nil {
		t.Fatal("expected error for missing trace")
	}
	if !strings.Contains(err.Error(), "ingest") {
		t.Errorf("error %q does not name the failing step", err)
	}
}

func TestBuild_MalformedTraceFails(t *testing.T) {
	tracePath := writeTrace(t, "{\"hash_current\":1}\nnot json\n")

	_, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    t.TempDir(),
		Threshold: 4,
	})
	if err == nil {
		t.Fatal("expected error for malformed trace")
	}
}

func TestBuild_MissingScreenshotCluster(t *testing.T) {
	// No record carries a screenshot: no cluster images are written and
	// node statements carry no image attribute.
	tracePath := writeTrace(t, scenarioTrace)
	outDir := t.TempDir()

	res, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: 4,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, _ := os.ReadFile(res.DotPath)
	if strings.Contains(string(data), "image=") {
		t.Errorf("dot output has image attribute without screenshots:\n%s", data)
	}

	entries, _ := os.ReadDir(outDir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "cluster_") {
			t.Errorf("unexpected cluster image %s", e.Name())
		}
	}
}

func TestBuild_ScreenshotCopiedAndReferenced(t *testing.T) {
	shotDir := t.TempDir()
	shot := filepath.Join(shotDir, "state.png")
	if err := os.WriteFile(shot, []byte("png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	traceLine := `{"hash_previous":null,"hash_current":7,"screenshot_path":` + jsonString(shot) + `}`
	tracePath := writeTrace(t, traceLine)
	outDir := t.TempDir()

	res, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: 4,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "cluster_0.png")); err != nil {
		t.Errorf("cluster_0.png missing: %v", err)
	}
	data, _ := os.ReadFile(res.DotPath)
	if !strings.Contains(string(data), "cluster_0.png") {
		t.Errorf("dot output does not reference the normalized image:\n%s", data)
	}
}

func TestBuild_BadScreenshotIsFatal(t *testing.T) {
	traceLine := `{"hash_previous":null,"hash_current":7,"screenshot_path":"/definitely/missing.png"}`
	tracePath := writeTrace(t, traceLine)

	_, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    t.TempDir(),
		Threshold: 4,
	})
	if err == nil {
		t.Fatal("expected error for unreadable screenshot")
	}
	if !strings.Contains(err.Error(), "representatives") {
		t.Errorf("error %q does not name the failing step", err)
	}
}

func TestBuild_ArchiveWritesCompressedTrace(t *testing.T) {
	tracePath := writeTrace(t, scenarioTrace)
	outDir := t.TempDir()

	_, err := Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: 4,
		Archive:   true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "trace.jsonl.zst")); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestBuild_RecordsCatalogRun(t *testing.T) {
	tracePath := writeTrace(t, scenarioTrace)
	outDir := t.TempDir()

	store, err := catalog.Open(filepath.Join(outDir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()

	_, err = Build(context.Background(), Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: 4,
		Catalog:   store,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	runs, err := store.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d catalog runs, want 1", len(runs))
	}
	if runs[0].Clusters != 2 || runs[0].Edges != 2 {
		t.Errorf("catalog run = %+v, want 2 clusters / 2 edges", runs[0])
	}
}

func jsonString(s string) string {
	b := strings.Builder{}
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
