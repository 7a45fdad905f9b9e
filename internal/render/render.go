// Package render turns a DOT description into a final image by invoking an
// installed Graphviz layout engine.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Renderer rasterizes a graph description. Kept narrow so everything up to
// DOT generation is testable without Graphviz installed.
type Renderer interface {
	Render(ctx context.Context, dotPath, outPath string) error
}

// Graphviz shells out to a layout engine binary. One blocking call, no
// retries, no timeout beyond the context: the tool is a one-shot batch
// converter and a stuck engine should be visible, not masked.
type Graphviz struct {
	Engine string // layout binary: fdp, dot, neato, ...
	Format string // -T value: svg, png, ...
	Size   string // -Gsize value, e.g. "20,20" (rendered with a trailing !)
	DPI    int    // -Gdpi value, 0 to omit
}

func (g Graphviz) Render(ctx context.Context, dotPath, outPath string) error {
	cmd := exec.CommandContext(ctx, g.Engine, g.args(dotPath, outPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("render %s: %s: %w", outPath, msg, err)
		}
		return fmt.Errorf("render %s: %w", outPath, err)
	}
	return nil
}

func (g Graphviz) args(dotPath, outPath string) []string {
	args := []string{"-T" + g.Format, dotPath}
	if g.Size != "" {
		args = append(args, fmt.Sprintf("-Gsize=%s!", g.Size))
	}
	if g.DPI > 0 {
		args = append(args, fmt.Sprintf("-Gdpi=%d", g.DPI))
	}
	return append(args, "-o", outPath)
}
