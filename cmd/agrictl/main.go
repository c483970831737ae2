// agrictl evaluates readings, generates datasets and watches farms from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type cli struct {
	configPath string
	cfg        Config

	persistenceURL string
	journalPath    string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "agrictl",
		Short: "Agronomic decision engine CLI",
		Long: `agrictl runs the agronomic advisories on single readings, generates
synthetic sensor datasets and watches the latest farm readings for alerts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			// i flag hanno la precedenza sul file
			if cmd.Flags().Changed("persistence-url") {
				cfg.PersistenceURL = c.persistenceURL
			}
			if cmd.Flags().Changed("journal") {
				cfg.JournalPath = c.journalPath
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Configuration file path (agrictl.yaml)")
	root.PersistentFlags().StringVar(&c.persistenceURL, "persistence-url", "", "Persistence service base URL")
	root.PersistentFlags().StringVarP(&c.journalPath, "journal", "j", "", "SQLite alert journal path")

	root.AddCommand(
		newEvaluateCmd(c),
		newSimulateCmd(c),
		newWatchCmd(c),
		newAlertsCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
