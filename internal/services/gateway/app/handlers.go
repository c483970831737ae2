package app

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model"
	"github.com/LeonardoBeccarini/agrimonitor/internal/services/advisory"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

// GET /dashboard/data?farm=&lang=
func (g *Gateway) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	q := r.URL.Query()
	farm := strings.TrimSpace(q.Get("farm"))
	lang := strings.TrimSpace(q.Get("lang"))
	query := url.Values{}
	if farm != "" {
		query.Set("farm", farm)
	}

	type res struct {
		key    string
		status UpstreamStatus
	}
	ch := make(chan res, 2)
	var (
		readings []model.Reading
		alerts   []FarmAlerts
	)

	// Fetch in parallelo
	go func() {
		stale, err := g.persistence.GetJSON(ctx, query, &readings)
		ch <- res{"persistence", g.status(g.persistence, stale, err)}
	}()
	go func() {
		stale, err := g.events.GetJSON(ctx, query, &alerts)
		ch <- res{"events", g.status(g.events, stale, err)}
	}()

	data := DashboardData{
		Farms:     []FarmView{},
		Alerts:    []FarmAlerts{},
		Upstreams: map[string]UpstreamStatus{},
	}
	for i := 0; i < 2; i++ {
		rv := <-ch
		data.Upstreams[rv.key] = rv.status
	}
	if alerts != nil {
		data.Alerts = alerts
	}
	if !translate.IsSource(lang) {
		for i := range data.Alerts {
			for j := range data.Alerts[i].Alerts {
				a := &data.Alerts[i].Alerts[j]
				a.Message = translate.Text(ctx, g.cfg.Translator, a.Message, lang)
			}
		}
	}

	sortByFarm(readings)
	for _, rd := range readings {
		if farm != "" && rd.FarmID != farm {
			continue
		}
		ev, source, err := g.evaluate(ctx, rd)
		if err != nil {
			log.Printf("gateway: farm=%s skipped: %v", rd.FarmID, err)
			continue
		}
		data.Farms = append(data.Farms, FarmView{
			FarmID:     rd.FarmID,
			Reading:    rd,
			Evaluation: advisory.Localize(ctx, g.cfg.Translator, lang, ev),
			Source:     source,
		})
	}
	data.Stats = ComputeStats(data.readings())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)

	log.Printf("gateway: GET /dashboard/data [%dms] cb[pers]=%s cb[events]=%s cb[adv]=%s farms=%d alerts=%d",
		time.Since(start).Milliseconds(), g.persistence.State(), g.events.State(), g.advisorCB.State(),
		len(data.Farms), len(data.Alerts))
}

func (g *Gateway) status(u *Upstream, stale bool, err error) UpstreamStatus {
	st := UpstreamStatus{Breaker: u.State(), Stale: stale}
	if stale {
		g.metrics.fallback(u.name)
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// evaluate asks the advisory service under its breaker and falls back to
// the in-process engine.
func (g *Gateway) evaluate(ctx context.Context, rd model.Reading) (advisory.Evaluation, string, error) {
	if g.cfg.Advisor != nil {
		res, err := g.advisorCB.Execute(func() (interface{}, error) {
			actx, cancel := context.WithTimeout(ctx, g.cfg.AdvisorTimeout)
			defer cancel()
			return g.cfg.Advisor.Evaluate(actx, &advisory.EvaluateRequest{Reading: rd})
		})
		if err == nil {
			return res.(*advisory.EvaluateResponse).Evaluation, SourceRemote, nil
		}
		g.metrics.fallback("advisory")
		log.Printf("gateway: advisory unavailable (%v), evaluating locally", err)
	}
	ev, err := advisory.Evaluate(rd)
	return ev, SourceLocal, err
}

func (d DashboardData) readings() []model.Reading {
	out := make([]model.Reading, 0, len(d.Farms))
	for _, f := range d.Farms {
		out = append(out, f.Reading)
	}
	return out
}

// ComputeStats averages temperature, humidity and moisture over the
// readings that report them, rounded to 2 decimals.
func ComputeStats(readings []model.Reading) Stats {
	st := Stats{Count: len(readings)}
	avg := func(get func(model.Reading) *float64) *float64 {
		var sum float64
		n := 0
		for _, r := range readings {
			if v := get(r); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		m := math.Round(sum/float64(n)*100) / 100
		return &m
	}
	st.AvgTemperature = avg(func(r model.Reading) *float64 { return r.Temperature })
	st.AvgHumidity = avg(func(r model.Reading) *float64 { return r.Humidity })
	st.AvgMoisture = avg(func(r model.Reading) *float64 { return r.SoilMoisture })
	return st
}
