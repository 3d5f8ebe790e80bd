package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeing",
		Short: "Estimate the seeing of astronomical images",
		Long: `seeing detects the point sources of an image, fits a rotated 2D Gaussian to
each and combines the per-star FWHM values into a sigma-clipped seeing
estimate, in pixels and, when the pixel scale is known, in arcseconds.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config", "", "Configuration file (default .seeing.yaml, then $XDG_CONFIG_HOME/seeingmetrics/config.yaml)")

	cmd.AddCommand(newMeasureCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
