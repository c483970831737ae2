package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/storage"
)

// watcher polls the persistence service and classifies what it returns.
type watcher struct {
	client  *resty.Client
	minutes int
	farm    string
	journal *storage.Journal // opzionale
	out     io.Writer

	seen map[string]time.Time // ultima lettura già processata per farm
}

func newWatcher(cfg Config, farm string, journal *storage.Journal, out io.Writer) *watcher {
	return &watcher{
		client:  resty.New().SetBaseURL(cfg.PersistenceURL).SetTimeout(cfg.Timeout),
		minutes: cfg.Minutes,
		farm:    farm,
		journal: journal,
		out:     out,
		seen:    make(map[string]time.Time),
	}
}

// poll fetches the latest readings once and returns how many were new.
func (w *watcher) poll(ctx context.Context) (int, error) {
	req := w.client.R().SetContext(ctx).
		SetQueryParam("minutes", strconv.Itoa(w.minutes)).
		SetHeader("Accept", "application/json")
	if w.farm != "" {
		req.SetQueryParam("farm", w.farm)
	}
	resp, err := req.Get("/data/latest")
	if err != nil {
		return 0, fmt.Errorf("persistence request: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("persistence status %d", resp.StatusCode())
	}
	var readings []model.Reading
	if err := json.Unmarshal(resp.Body(), &readings); err != nil {
		return 0, fmt.Errorf("persistence decode: %w", err)
	}

	fresh := readings[:0]
	for _, r := range readings {
		if last, ok := w.seen[r.FarmID]; ok && !r.Timestamp.After(last) {
			continue
		}
		w.seen[r.FarmID] = r.Timestamp
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	farms := advisor.ClassifyFarms(fresh)
	printFarmAlerts(w.out, time.Now(), farms)
	if w.journal != nil {
		for _, fa := range farms {
			for _, ra := range fa.Readings {
				if err := w.journal.SaveAlerts(ctx, fa.FarmID, ra.Reading.Timestamp, ra.Alerts); err != nil {
					return len(fresh), fmt.Errorf("journal: %w", err)
				}
			}
		}
	}
	return len(fresh), nil
}

func printFarmAlerts(out io.Writer, now time.Time, farms []advisor.FarmAlerts) {
	if len(farms) == 0 {
		fmt.Fprintf(out, "[%s] no alerts\n", now.Format("15:04:05"))
		return
	}
	for _, fa := range farms {
		fmt.Fprintf(out, "[%s] farm %s\n", now.Format("15:04:05"), fa.FarmID)
		for _, e := range fa.Errors {
			fmt.Fprintf(out, "  error: %s\n", e)
		}
		for _, ra := range fa.Readings {
			for _, a := range ra.Alerts {
				fmt.Fprintf(out, "  %-8s %-22s %s\n", a.Severity, a.Code, a.Message)
			}
		}
	}
}

func newWatchCmd(c *cli) *cobra.Command {
	var (
		farm     string
		once     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the latest readings and print alerts per farm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("interval") {
				cfg.PollInterval = interval
			}
			if cfg.PollInterval <= 0 {
				return fmt.Errorf("interval must be positive")
			}

			var journal *storage.Journal
			if cfg.JournalPath != "" {
				j, err := storage.Open(cfg.JournalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				journal = j
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := newWatcher(cfg, farm, journal, cmd.OutOrStdout())
			if _, err := w.poll(ctx); err != nil {
				if once {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			}
			if once {
				return nil
			}

			ticker := time.NewTicker(cfg.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := w.poll(ctx); err != nil && ctx.Err() == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&farm, "farm", "", "Only watch this farm")
	cmd.Flags().BoolVar(&once, "once", false, "Poll once and exit")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Polling interval (overrides poll_interval)")
	return cmd
}
