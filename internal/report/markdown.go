package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"seeingmetrics/pkg/seeing"
)

// MarkdownWriter writes the report as a Markdown document with summary,
// field and star tables.
type MarkdownWriter struct {
	out io.Writer
}

func NewMarkdownWriter(out io.Writer) *MarkdownWriter {
	return &MarkdownWriter{out: out}
}

func (w *MarkdownWriter) Write(r *Report) error {
	md := markdown.NewMarkdown(w.out)

	md.H1("Seeing Report")
	md.PlainText("")
	w.writeSummary(md, r)
	w.writeField(md, r)
	w.writeStars(md, r)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Run %s, %s*", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, r *Report) {
	rows := [][]string{
		{"Image", "`" + r.Image + "`"},
		{"Size", fmt.Sprintf("%d x %d", r.Width, r.Height)},
		{"Detected", strconv.Itoa(r.Detected)},
		{"Good", strconv.Itoa(r.Good)},
	}
	if s := r.Seeing; s != nil {
		rows = append(rows,
			[]string{"**Seeing FWHM**", fmt.Sprintf("**%.3f px**", s.FWHM)},
			[]string{"Median FWHM", fmt.Sprintf("%.3f px", s.Median)},
			[]string{"Std dev", fmt.Sprintf("%.3f px", s.StdDev)},
			[]string{"Used / clipped / implausible", fmt.Sprintf("%d / %d / %d", s.Used, s.Clipped, s.Implausible)},
		)
		if r.FWHMArcsec > 0 {
			rows = append(rows, []string{"Seeing (arcsec)", fmt.Sprintf("%.2f\" at %.3f\"/px", r.FWHMArcsec, r.PixelScale)})
		}
	}
	if bg := r.Background; bg != nil {
		rows = append(rows, []string{"Background", fmt.Sprintf("%.2f +/- %.2f", bg.Median, bg.StdDev)})
	}
	if len(r.Failures) > 0 {
		rows = append(rows, []string{"Failures", formatFailures(r.Failures)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if r.Error != "" {
		md.Warningf("Seeing could not be measured: %s", r.Error)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeField(md *markdown.Markdown, r *Report) {
	f := r.Field
	if f == nil {
		return
	}
	md.H2("Field")
	md.PlainText("")

	rows := make([][]string, 0, len(seeing.ZoneOrder))
	for _, pos := range seeing.ZoneOrder {
		z := f.Zones[pos]
		rows = append(rows, []string{pos.String(), fmt.Sprintf("%.3f", z.MedianFWHM), strconv.Itoa(z.StarCount)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Zone", "Median FWHM (px)", "Stars"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("Tilt %.1f%% (worst %s, best %s), off-axis %.1f%%.",
		f.TiltPct, orDash(f.WorstCorner), orDash(f.BestCorner), f.OffAxisPct)
	md.PlainText("")
	if !f.Reliable {
		md.Note("Too few stars per zone for a reliable tilt estimate.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeStars(md *markdown.Markdown, r *Report) {
	md.H2("Stars")
	md.PlainText("")
	if len(r.Stars) == 0 {
		md.PlainText("No stars were measured.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(r.Stars))
	for i, s := range r.Stars {
		fwhm := "-"
		if s.FWHM > 0 {
			fwhm = fmt.Sprintf("%.3f", s.FWHM)
		}
		rows[i] = []string{
			fmt.Sprintf("%.1f", s.X),
			fmt.Sprintf("%.1f", s.Y),
			fmt.Sprintf("%.0f", s.Flux),
			fmt.Sprintf("%.2f", s.Sharpness),
			fwhm,
			s.Status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"X", "Y", "Flux", "Sharpness", "FWHM (px)", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}
