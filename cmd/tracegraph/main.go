package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/suykerbuyk/tracegraph/internal/catalog"
	"github.com/suykerbuyk/tracegraph/internal/check"
	"github.com/suykerbuyk/tracegraph/internal/config"
	"github.com/suykerbuyk/tracegraph/internal/pipeline"
	"github.com/suykerbuyk/tracegraph/internal/render"
	"github.com/suykerbuyk/tracegraph/internal/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2:])

	case "watch":
		runWatch(os.Args[2:])

	case "check":
		cfg, err := config.Load()
		if err != nil {
			fatal("load config: %v", err)
		}
		report := check.Run(cfg)
		fmt.Print(report.Format())
		if report.HasFailures() {
			os.Exit(1)
		}

	case "version":
		fmt.Printf("tracegraph v%s\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func runBuild(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	fs := pflag.NewFlagSet("build", pflag.ExitOnError)
	threshold := fs.IntP("threshold", "t", cfg.Threshold, "max Hamming distance for two hashes to share a cluster")
	doArchive := fs.Bool("archive", cfg.Archive.Compress, "compress the source trace into the output dir")
	noRender := fs.Bool("no-render", false, "write graph.dot only, skip the layout engine")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fatal("usage: tracegraph build [flags] <trace.jsonl> <output-dir>")
	}

	opts := buildOptions(cfg, fs.Arg(0), fs.Arg(1), *threshold, *doArchive, *noRender)
	if opts.Catalog != nil {
		defer opts.Catalog.Close()
	}

	res, err := pipeline.Build(context.Background(), opts)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("graph description written to %s\n", res.DotPath)
	if res.ImagePath != "" {
		fmt.Printf("graph rendered to %s\n", res.ImagePath)
	}
	fmt.Printf("%d hashes, %d clusters, %d edges (%d self-loops dropped at export)\n",
		res.Hashes, res.Clusters, res.Edges, res.SelfLoops)
	if res.Violations > 0 {
		fmt.Printf("%d records carried violations\n", res.Violations)
	}
}

func runWatch(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	fs := pflag.NewFlagSet("watch", pflag.ExitOnError)
	threshold := fs.IntP("threshold", "t", cfg.Threshold, "max Hamming distance for two hashes to share a cluster")
	noRender := fs.Bool("no-render", false, "write graph.dot only, skip the layout engine")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fatal("usage: tracegraph watch [flags] <trace.jsonl> <output-dir>")
	}

	opts := buildOptions(cfg, fs.Arg(0), fs.Arg(1), *threshold, false, *noRender)
	if opts.Catalog != nil {
		defer opts.Catalog.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch.Run(ctx, opts); err != nil {
		fatal("%v", err)
	}
}

func buildOptions(cfg config.Config, tracePath, outDir string, threshold int, doArchive, noRender bool) pipeline.Options {
	opts := pipeline.Options{
		TracePath: tracePath,
		OutDir:    outDir,
		Threshold: threshold,
		Archive:   doArchive,
	}

	if !noRender {
		opts.ImageName = "graph." + cfg.Render.Format
		opts.Renderer = render.Graphviz{
			Engine: cfg.Render.Engine,
			Format: cfg.Render.Format,
			Size:   cfg.Render.Size,
			DPI:    cfg.Render.DPI,
		}
	}

	if cfg.Catalog.Enabled {
		path := cfg.Catalog.Path
		if path == "" {
			path = filepath.Join(outDir, "catalog.db")
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fatal("create output dir: %v", err)
		}
		store, err := catalog.Open(path)
		if err != nil {
			log.Printf("warning: could not open catalog: %v", err)
		} else {
			opts.Catalog = store
		}
	}

	return opts
}

func usage() {
	fmt.Fprintf(os.Stderr, `tracegraph v%s — UI-automation trace to state-transition graph

Usage:
  tracegraph build [flags] <trace.jsonl> <output-dir>   Convert one trace
  tracegraph watch [flags] <trace.jsonl> <output-dir>   Rebuild on changes
  tracegraph check                                      Verify environment
  tracegraph version                                    Print version
  tracegraph help                                       Show this help

Build flags:
  -t, --threshold <int>   Hamming distance threshold for clustering (default 4)
      --archive           zstd-compress the source trace into the output dir
      --no-render         write graph.dot only, skip the layout engine

Requires graphviz unless --no-render is set.
Configuration: ~/.config/tracegraph/config.toml
`, version)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "tracegraph: "+format+"\n", args...)
	os.Exit(1)
}
