// Package artifact selects and normalizes one representative screenshot per
// cluster for display in the rendered graph.
package artifact

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"
)

// Select picks, for each cluster, the screenshot of the first member (in
// insertion order) that has one recorded against it in the trace. Clusters
// whose members all lack screenshots are absent from the result and render
// without an image.
func Select(clusters [][]uint64, screenshots map[uint64]string) map[int]string {
	reps := make(map[int]string)
	for ci, members := range clusters {
		for _, h := range members {
			if p := screenshots[h]; p != "" {
				reps[ci] = p
				break
			}
		}
	}
	return reps
}

// Normalize writes one display image per represented cluster into outDir:
// WebP sources are re-encoded as PNG, anything else is copied unchanged.
// Output names are deterministic (cluster_<index>.<ext>) and the returned
// paths are absolute with forward slashes, so the DOT file stays portable
// across hosts.
//
// Any unreadable or undecodable source is fatal: a bad screenshot path is a
// data-integrity problem in the trace, not something to paper over by
// skipping the node.
func Normalize(reps map[int]string, outDir string) (map[int]string, error) {
	out := make(map[int]string, len(reps))
	for ci, src := range reps {
		dest, err := normalizeOne(ci, src, outDir)
		if err != nil {
			return nil, err
		}
		out[ci] = dest
	}
	return out, nil
}

func normalizeOne(ci int, src, outDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))

	var name string
	var write func(f *os.File) error

	if ext == ".webp" {
		name = fmt.Sprintf("cluster_%d.png", ci)
		write = func(f *os.File) error {
			sf, err := os.Open(src)
			if err != nil {
				return fmt.Errorf("open screenshot %s: %w", src, err)
			}
			defer sf.Close()
			img, err := webp.Decode(sf)
			if err != nil {
				return fmt.Errorf("decode webp %s: %w", src, err)
			}
			if err := png.Encode(f, img); err != nil {
				return fmt.Errorf("encode png for cluster %d: %w", ci, err)
			}
			return nil
		}
	} else {
		name = fmt.Sprintf("cluster_%d%s", ci, ext)
		write = func(f *os.File) error {
			data, err := os.ReadFile(src)
			if err != nil {
				return fmt.Errorf("read screenshot %s: %w", src, err)
			}
			if _, err := f.Write(data); err != nil {
				return fmt.Errorf("write image for cluster %d: %w", ci, err)
			}
			return nil
		}
	}

	dest := filepath.Join(outDir, name)
	if err := writeAtomic(dest, write); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dest, err)
	}
	return filepath.ToSlash(abs), nil
}

// writeAtomic writes through a temp file in the destination directory and
// renames into place, so a failed run never leaves a half-written image.
func writeAtomic(dest string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize image %s: %w", dest, err)
	}
	return nil
}
