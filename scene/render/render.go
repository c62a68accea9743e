// ABOUTME: Renders DOT text to SVG or PNG by piping it through the graphviz dot command.
// ABOUTME: The "dot" format passes text through so callers can offer a download without graphviz.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGraphvizMissing is returned for svg and png when dot is not on PATH.
var ErrGraphvizMissing = errors.New("graphviz dot command not found")

// ErrUnsupportedFormat is returned for formats other than dot, svg and png.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ContentType returns the MIME type for a supported format.
func ContentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	}
	return "text/vnd.graphviz"
}

// GraphvizAvailable reports whether the dot command is installed.
func GraphvizAvailable() bool {
	_, err := exec.LookPath("dot")
	return err == nil
}

// RenderDOT renders dotText in format: "dot", "svg" or "png".
func RenderDOT(ctx context.Context, dotText string, format string) ([]byte, error) {
	if dotText == "" {
		return nil, errors.New("cannot render empty DOT text")
	}
	switch format {
	case "dot":
		return []byte(dotText), nil
	case "svg", "png":
		if !GraphvizAvailable() {
			return nil, fmt.Errorf("%w: install graphviz to render %s", ErrGraphvizMissing, format)
		}
		return runGraphviz(ctx, dotText, format)
	}
	return nil, fmt.Errorf("%w %q: want dot, svg or png", ErrUnsupportedFormat, format)
}

func runGraphviz(ctx context.Context, dotText, format string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "dot", "-T"+format)
	cmd.Stdin = strings.NewReader(dotText)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("graphviz dot failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
