package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	sensorSimulator "github.com/LeonardoBeccarini/agrimonitor/internal/sensor-simulator"
)

func newSimulateCmd(c *cli) *cobra.Command {
	var (
		records, farms int
		profile, out   string
		seed           int64
		step           time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic CSV dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sim := c.cfg.Simulate
			if cmd.Flags().Changed("records") {
				sim.Records = records
			}
			if cmd.Flags().Changed("farms") {
				sim.Farms = farms
			}
			if cmd.Flags().Changed("profile") {
				sim.Profile = profile
			}
			if cmd.Flags().Changed("seed") {
				sim.Seed = seed
			}
			if sim.Records <= 0 || sim.Farms <= 0 {
				return fmt.Errorf("records and farms must be positive")
			}
			if sim.Seed == 0 {
				sim.Seed = time.Now().UnixNano()
			}

			gen, err := sensorSimulator.NewDataGenerator(sensorSimulator.Profile(sim.Profile), sim.Seed)
			if err != nil {
				return err
			}
			ids := make([]string, sim.Farms)
			for i := range ids {
				ids[i] = fmt.Sprintf("farm-%d", i+1)
			}
			start := time.Now().UTC().Truncate(time.Minute).Add(-time.Duration(sim.Records) * step)
			readings := gen.Batch(ids, sim.Records, start, step)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := sensorSimulator.WriteCSV(w, readings); err != nil {
				return err
			}
			if w != cmd.OutOrStdout() {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d readings for %d farms to %s\n", len(readings), sim.Farms, out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&records, "records", "n", 100, "Number of readings")
	cmd.Flags().IntVar(&farms, "farms", 3, "Number of farms")
	cmd.Flags().StringVar(&profile, "profile", "batch", "Value profile: batch|live|realistic")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output CSV file, - for stdout")
	cmd.Flags().DurationVar(&step, "step", time.Minute, "Time between readings")
	return cmd
}
