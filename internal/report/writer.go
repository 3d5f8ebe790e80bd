package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer writes a report to its destination.
type Writer interface {
	Write(r *Report) error
}

// NewWriter returns the writer of the named format.
func NewWriter(format string, out io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(out), nil
	case FormatJSON:
		return NewJSONWriter(out, true), nil
	case FormatMarkdown:
		return NewMarkdownWriter(out), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// TextWriter writes a short human readable summary.
type TextWriter struct {
	out io.Writer
}

func NewTextWriter(out io.Writer) *TextWriter {
	return &TextWriter{out: out}
}

func (w *TextWriter) Write(r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Image:      %s (%dx%d)\n", r.Image, r.Width, r.Height)
	if s := r.Seeing; s != nil {
		fmt.Fprintf(&b, "Seeing:     %.3f px (median %.3f, stddev %.3f)", s.FWHM, s.Median, s.StdDev)
		if r.FWHMArcsec > 0 {
			fmt.Fprintf(&b, " = %.2f\"", r.FWHMArcsec)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Stars:      detected %d, good %d, used %d, clipped %d, implausible %d\n",
			r.Detected, r.Good, s.Used, s.Clipped, s.Implausible)
	} else {
		fmt.Fprintf(&b, "Seeing:     not measured\n")
		fmt.Fprintf(&b, "Stars:      detected %d, good %d\n", r.Detected, r.Good)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "Failures:   %s\n", formatFailures(r.Failures))
	}
	if bg := r.Background; bg != nil {
		fmt.Fprintf(&b, "Background: median %.2f, noise %.2f, threshold %.2f\n", bg.Median, bg.StdDev, r.Threshold)
	}
	if f := r.Field; f != nil {
		fmt.Fprintf(&b, "Field:      tilt %.1f%% (worst %s, best %s), off-axis %.1f%%",
			f.TiltPct, orDash(f.WorstCorner), orDash(f.BestCorner), f.OffAxisPct)
		if !f.Reliable {
			b.WriteString(" [low star count]")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Duration:   %.0f ms\n", r.DurationMS)
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:      %s\n", r.Error)
	}

	_, err := io.WriteString(w.out, b.String())
	return err
}

// JSONWriter writes the whole report, including every star, as JSON.
type JSONWriter struct {
	out    io.Writer
	indent bool
}

func NewJSONWriter(out io.Writer, indent bool) *JSONWriter {
	return &JSONWriter{out: out, indent: indent}
}

func (w *JSONWriter) Write(r *Report) error {
	enc := json.NewEncoder(w.out)
	if w.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func formatFailures(failures map[string]int) string {
	keys := make([]string, 0, len(failures))
	for k := range failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, failures[k])
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
