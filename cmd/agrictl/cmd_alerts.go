package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/agrimonitor/internal/storage"
)

func newAlertsCmd(c *cli) *cobra.Command {
	var (
		farm  string
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List journaled alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.JournalPath == "" {
				return fmt.Errorf("no journal configured (use --journal or journal_path)")
			}
			j, err := storage.Open(c.cfg.JournalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			records, err := j.ListAlerts(cmd.Context(), farm, from, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "READING TIME\tFARM\tSEVERITY\tCODE\tMESSAGE")
			fmt.Fprintln(w, "------------\t----\t--------\t----\t-------")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ReadingTime.Local().Format("2006-01-02 15:04"), r.FarmID, r.Severity, r.Code, r.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&farm, "farm", "", "Only this farm")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	cmd.Flags().DurationVar(&since, "since", 0, "Only alerts newer than this (0 = all)")
	return cmd
}
