package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
)

var measurementFlags = []struct {
	name, usage string
	field       func(r *model.Reading) **float64
}{
	{"moisture", "Soil moisture (%)", func(r *model.Reading) **float64 { return &r.SoilMoisture }},
	{"temperature", "Air temperature (°C)", func(r *model.Reading) **float64 { return &r.Temperature }},
	{"humidity", "Relative humidity (%)", func(r *model.Reading) **float64 { return &r.Humidity }},
	{"rainfall", "Rainfall (mm)", func(r *model.Reading) **float64 { return &r.Rainfall }},
	{"ph", "Soil pH", func(r *model.Reading) **float64 { return &r.PH }},
	{"n", "Nitrogen", func(r *model.Reading) **float64 { return &r.Nitrogen }},
	{"p", "Phosphorus", func(r *model.Reading) **float64 { return &r.Phosphorus }},
	{"k", "Potassium", func(r *model.Reading) **float64 { return &r.Potassium }},
}

func newEvaluateCmd(_ *cli) *cobra.Command {
	var (
		farm   string
		file   string
		asJSON bool
		values = make([]float64, len(measurementFlags))
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run advisories and alerts on one reading",
		Long: `Evaluate a reading given as flags or as a JSON file (--file, "-" for stdin).
Only the measurements passed on the command line are set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				r   model.Reading
				err error
			)
			if file != "" {
				r, err = readReadingFile(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
			} else {
				r = model.Reading{FarmID: farm, Timestamp: time.Now().UTC()}
				for i, mf := range measurementFlags {
					if cmd.Flags().Changed(mf.name) {
						*mf.field(&r) = model.Float(values[i])
					}
				}
			}

			ev, err := advisory.Evaluate(r)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ev)
			}
			printEvaluation(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().StringVar(&farm, "farm", "cli", "Farm id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Reading JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the evaluation as JSON")
	for i, mf := range measurementFlags {
		cmd.Flags().Float64Var(&values[i], mf.name, 0, mf.usage)
	}
	return cmd
}

func readReadingFile(stdin io.Reader, path string) (model.Reading, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Reading{}, fmt.Errorf("read %s: %w", path, err)
	}
	return model.DecodeReading(data)
}

func printEvaluation(out io.Writer, ev advisory.Evaluation) {
	fmt.Fprintf(out, "Farm %s: %s\n", ev.FarmID, ev.Severity)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, ev.Headline)
	fmt.Fprintln(out, ev.Summary)

	fmt.Fprintln(out, "\nAdvisories")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range []struct {
		name string
		res  messages.AdvisoryResult
	}{
		{"irrigation", ev.Irrigation},
		{"fertilizer", ev.Fertilizer},
		{"crop", ev.CropSuggestion},
	} {
		if a.res.Error != "" {
			fmt.Fprintf(w, "  %s\terror\t%s\n", a.name, a.res.Error)
			continue
		}
		sev := "-"
		if a.res.Severity != nil {
			sev = a.res.Severity.String()
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", a.name, sev, a.res.Message)
	}
	w.Flush()

	fmt.Fprintln(out, "\nAlerts")
	if len(ev.Alerts) == 0 {
		fmt.Fprintln(out, "  none")
	}
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range ev.Alerts {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", a.Severity, a.Code, a.Message)
	}
	w.Flush()

	fmt.Fprintln(out, "\nStatus")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range ev.Status {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", s.Metric, s.Severity, s.Label)
	}
	w.Flush()
}
