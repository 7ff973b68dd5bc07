package visual

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/benedoc-inc/pdfcmp/types"
)

// Renderer rasterizes every page of a PDF file into outDir and returns the
// image paths in page order.
type Renderer interface {
	Render(ctx context.Context, pdfPath, outDir, prefix string) ([]string, error)
}

// PixelDiffer compares two raster images and writes a highlighted
// difference image to out. It reports whether the images differ.
type PixelDiffer interface {
	Diff(ctx context.Context, expected, actual, out string) (bool, error)
}

const defaultToolTimeout = 2 * time.Minute

// GhostscriptRenderer renders pages with Ghostscript's png16m device.
type GhostscriptRenderer struct {
	Command    string // default "gs"
	Resolution int    // dpi, default 72
	Timeout    time.Duration
}

func (g GhostscriptRenderer) args(pdfPath, pattern string) []string {
	res := g.Resolution
	if res <= 0 {
		res = 72
	}
	return []string{
		"-dNOPAUSE", "-dBATCH", "-dSAFER", "-q",
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", res),
		"-sOutputFile=" + pattern,
		pdfPath,
	}
}

// Render writes <prefix>-<page>.png files.
func (g GhostscriptRenderer) Render(ctx context.Context, pdfPath, outDir, prefix string) ([]string, error) {
	command := g.Command
	if command == "" {
		command = "gs"
	}
	if err := clearPageImages(outDir, prefix); err != nil {
		return nil, err
	}
	pattern := filepath.Join(outDir, prefix+"-%d.png")
	code, stderr, err := runTool(ctx, g.Timeout, command, g.args(pdfPath, pattern)...)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, toolFailed(command, code, stderr)
	}
	return pageImages(outDir, prefix), nil
}

// clearPageImages removes <prefix>-<n>.png files left by an earlier run so
// they are not mistaken for pages of this one.
func clearPageImages(dir, prefix string) error {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.png"))
	if err != nil {
		return types.WrapError(types.ErrCodeIOError, "cannot list old page images", err)
	}
	for _, m := range matches {
		n := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix+"-"), ".png")
		if n == "" || strings.Trim(n, "0123456789") != "" {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return types.WrapError(types.ErrCodeIOError, "cannot remove old page image", err).WithContext("path", m)
		}
	}
	return nil
}

// pageImages lists <prefix>-1.png, <prefix>-2.png, ... up to the first gap.
func pageImages(dir, prefix string) []string {
	var out []string
	for n := 1; ; n++ {
		p := filepath.Join(dir, fmt.Sprintf("%s-%d.png", prefix, n))
		if _, err := os.Stat(p); err != nil {
			return out
		}
		out = append(out, p)
	}
}

// ImageMagickDiffer runs "compare -metric AE". Exit status 0 means the
// images match, 1 that they differ; anything else is a failure.
type ImageMagickDiffer struct {
	Command string // default "compare"
	Fuzz    string // e.g. "5%"
	Timeout time.Duration
}

func (m ImageMagickDiffer) args(expected, actual, out string) []string {
	args := []string{"-metric", "AE"}
	if m.Fuzz != "" {
		args = append(args, "-fuzz", m.Fuzz)
	}
	return append(args, expected, actual, out)
}

func (m ImageMagickDiffer) Diff(ctx context.Context, expected, actual, out string) (bool, error) {
	command := m.Command
	if command == "" {
		command = "compare"
	}
	code, stderr, err := runTool(ctx, m.Timeout, command, m.args(expected, actual, out)...)
	if err != nil {
		return false, err
	}
	switch code {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, toolFailed(command, code, stderr)
}

// runTool runs an external command and returns its exit status. A missing
// binary is reported as ErrToolUnavailable; a non-zero exit is not an error.
func runTool(ctx context.Context, timeout time.Duration, command string, args ...string) (int, string, error) {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(err, exec.ErrNotFound) {
		return 0, "", types.WrapErrorf(types.ErrCodeToolUnavailable, err, "%s is not installed", command).
			WithContext("tool", command)
	}
	if cmdCtx.Err() == context.DeadlineExceeded {
		return 0, "", types.NewPDFErrorf(types.ErrCodeToolFailed, "%s timed out after %s", command, timeout).
			WithContext("tool", command)
	}
	if ctx.Err() != nil {
		return 0, "", ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stderr.String(), nil
	}
	if err != nil {
		return 0, "", types.WrapErrorf(types.ErrCodeToolFailed, err, "cannot run %s", command).
			WithContext("tool", command)
	}
	return 0, stderr.String(), nil
}

func toolFailed(command string, code int, stderr string) error {
	return types.NewPDFErrorf(types.ErrCodeToolFailed, "%s exited with status %d: %s", command, code, strings.TrimSpace(stderr)).
		WithContext("tool", command).
		WithContext("exit_code", code)
}
