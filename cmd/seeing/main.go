// Command seeing measures the seeing of astronomical images: it detects the
// stars of a FITS or raster frame, fits a 2D Gaussian to each and reports
// the robust mean FWHM.
//
// Usage:
//
//	seeing measure <image> [flags]
//	seeing history [--limit n]
//	seeing version
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}
