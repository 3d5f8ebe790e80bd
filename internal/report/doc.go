// Package report turns a seeing.Result into a Report and writes it as text,
// JSON or Markdown.
//
// The core pipeline works in pixels. Reports add the arcsecond value when a
// pixel scale is known, either from the configuration or from the FITS
// header of the frame.
package report
