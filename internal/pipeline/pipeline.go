// Package pipeline runs the full trace-to-graph conversion: parse, cluster,
// select representatives, reduce transitions, export and render.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/suykerbuyk/tracegraph/internal/archive"
	"github.com/suykerbuyk/tracegraph/internal/artifact"
	"github.com/suykerbuyk/tracegraph/internal/catalog"
	"github.com/suykerbuyk/tracegraph/internal/cluster"
	"github.com/suykerbuyk/tracegraph/internal/dot"
	"github.com/suykerbuyk/tracegraph/internal/graph"
	"github.com/suykerbuyk/tracegraph/internal/render"
	"github.com/suykerbuyk/tracegraph/internal/trace"
)

// Options configures one build.
type Options struct {
	TracePath string
	OutDir    string
	Threshold int

	// ImageName is the rendered output filename (e.g. "graph.svg").
	// Empty skips rendering; the DOT file is still written.
	ImageName string
	Renderer  render.Renderer

	// Archive compresses the source trace into OutDir after a
	// successful build.
	Archive bool

	// Catalog, when non-nil, receives a run record. Catalog failures are
	// warnings, not build failures.
	Catalog *catalog.Store
}

// Result reports what a build produced.
type Result struct {
	DotPath    string
	ImagePath  string
	Hashes     int
	Clusters   int
	Edges      int
	SelfLoops  int
	Violations int
}

// Build converts one trace file into a rendered transition graph.
// Stages run in strict sequence; the first failure aborts the build.
func Build(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	t, err := trace.ParseFile(opts.TracePath)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	hashes := t.Hashes()
	clusters, assign := cluster.Cluster(hashes, opts.Threshold)

	reps := artifact.Select(clusters, t.Screenshots())
	images, err := artifact.Normalize(reps, opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("representatives: %w", err)
	}

	edges := graph.Reduce(t.Records, assign)
	g := graph.New(clusters, images, edges)

	dotPath := filepath.Join(opts.OutDir, "graph.dot")
	if err := os.WriteFile(dotPath, dot.Marshal(g), 0o644); err != nil {
		return nil, fmt.Errorf("write graph description: %w", err)
	}

	res := &Result{
		DotPath:    dotPath,
		Hashes:     len(hashes),
		Clusters:   len(clusters),
		Edges:      len(edges),
		SelfLoops:  edges.SelfLoops(),
		Violations: t.Violations(),
	}

	if opts.ImageName != "" {
		if opts.Renderer == nil {
			return nil, fmt.Errorf("render: no renderer configured for %s", opts.ImageName)
		}
		imagePath := filepath.Join(opts.OutDir, opts.ImageName)
		if err := opts.Renderer.Render(ctx, dotPath, imagePath); err != nil {
			return nil, err
		}
		res.ImagePath = imagePath
	}

	if opts.Archive {
		if err := archive.Compress(opts.TracePath, archive.Path(opts.TracePath, opts.OutDir)); err != nil {
			return nil, fmt.Errorf("archive trace: %w", err)
		}
	}

	if opts.Catalog != nil {
		err := opts.Catalog.Record(catalog.Run{
			TracePath:  opts.TracePath,
			OutputDir:  opts.OutDir,
			Threshold:  opts.Threshold,
			Hashes:     res.Hashes,
			Clusters:   res.Clusters,
			Edges:      res.Edges,
			SelfLoops:  res.SelfLoops,
			Violations: res.Violations,
			DotPath:    res.DotPath,
			ImagePath:  res.ImagePath,
			Duration:   time.Since(start),
		})
		if err != nil {
			log.Printf("warning: could not record run: %v", err)
		}
	}

	return res, nil
}
