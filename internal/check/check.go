// Package check verifies the environment a graph build depends on.
package check

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/suykerbuyk/tracegraph/internal/catalog"
	"github.com/suykerbuyk/tracegraph/internal/config"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "tracegraph check\n\n  no checks ran\n"
	}

	// Find max name length for alignment.
	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("tracegraph check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports the resolved config path. Always passes — broken TOML
// is caught when the config is loaded before we get here.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	if _, err := os.Stat(cfgPath); err != nil {
		return Result{Name: "config", Status: Pass, Detail: "defaults (no config file)"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfgPath)}
}

// CheckEngine checks whether the configured layout engine is installed.
func CheckEngine(engine string) Result {
	path, err := exec.LookPath(engine)
	if err != nil {
		return Result{Name: "engine", Status: Fail, Detail: engine + " not found on PATH (install graphviz)"}
	}
	return Result{Name: "engine", Status: Pass, Detail: path}
}

// CheckCatalog reports the last recorded build, if a shared catalog is
// configured and has any.
func CheckCatalog(path string) Result {
	if path == "" {
		return Result{Name: "catalog", Status: Pass, Detail: "per-output-dir (no shared path configured)"}
	}
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "catalog", Status: Warn, Detail: config.CompressHome(path) + " not created yet"}
	}

	store, err := catalog.Open(path)
	if err != nil {
		return Result{Name: "catalog", Status: Fail, Detail: fmt.Sprintf("cannot open %s: %v", config.CompressHome(path), err)}
	}
	defer store.Close()

	runs, err := store.Recent(1)
	if err != nil {
		return Result{Name: "catalog", Status: Fail, Detail: fmt.Sprintf("cannot read %s: %v", config.CompressHome(path), err)}
	}
	if len(runs) == 0 {
		return Result{Name: "catalog", Status: Pass, Detail: "no runs recorded yet"}
	}
	r := runs[0]
	return Result{
		Name:   "catalog",
		Status: Pass,
		Detail: fmt.Sprintf("last run %s: %d clusters, %d edges", r.CreatedAt.Format("2006-01-02 15:04"), r.Clusters, r.Edges),
	}
}

// Run executes all checks against the given config and returns a report.
func Run(cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig())
	results = append(results, CheckEngine(cfg.Render.Engine))
	results = append(results, CheckCatalog(cfg.Catalog.Path))

	return Report{Results: results}
}
