package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"seeingmetrics/internal/history"
	"seeingmetrics/internal/report"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		show   string
		dir    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded seeing measurements",
		Long: `History lists the runs recorded with measure --history, most recent first.
With --show the full report of one run is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.HistoryDir()
			}
			if !cmd.Flags().Changed("format") {
				format = cfg.Output.Format
			}

			store, err := history.Open(dir)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if show != "" {
				rep, err := store.Get(cmd.Context(), show)
				if err != nil {
					return err
				}
				w, err := report.NewWriter(format, out)
				if err != nil {
					return err
				}
				return w.Write(rep)
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tIMAGE\tFWHM (px)\tFWHM (\")\tSTARS")
			for _, r := range runs {
				fwhm, arcsec := "-", "-"
				if r.OK {
					fwhm = fmt.Sprintf("%.3f", r.FWHM)
				}
				if r.FWHMArcsec > 0 {
					arcsec = fmt.Sprintf("%.2f", r.FWHMArcsec)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Image, fwhm, arcsec, r.Used, r.Detected)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list, 0 for all")
	cmd.Flags().StringVar(&show, "show", "", "Print the full report of the run with this ID")
	cmd.Flags().StringVar(&dir, "dir", "", "History database directory (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "Report format for --show: text, json or markdown")
	return cmd
}
