package advisory

import (
	"context"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
	"github.com/LeonardoBeccarini/agrimonitor/pkg/translate"
)

// Evaluation is everything the engine says about one reading.
type Evaluation struct {
	FarmID         string                  `json:"farm_id"`
	Irrigation     messages.AdvisoryResult `json:"irrigation"`
	Fertilizer     messages.AdvisoryResult `json:"fertilizer"`
	CropSuggestion messages.AdvisoryResult `json:"crop_suggestion"`
	Severity       advisor.Severity        `json:"severity"`
	Alerts         []advisor.Alert         `json:"alerts"`
	Status         []advisor.Status        `json:"status"`
	Headline       string                  `json:"headline"`
	Summary        string                  `json:"summary"`
}

// Evaluate runs advisories, alerts and presentation rules on r. Advisory
// failures are reported per advisory; the error is returned only when the
// reading itself is malformed.
func Evaluate(r entities.Reading) (Evaluation, error) {
	alerts, err := advisor.Classify(r)
	if err != nil {
		return Evaluation{}, err
	}
	rep := advisor.Evaluate(r)
	return Evaluation{
		FarmID:         r.FarmID,
		Irrigation:     messages.NewAdvisoryResult(rep.Irrigation),
		Fertilizer:     messages.NewAdvisoryResult(rep.Fertilizer),
		CropSuggestion: messages.NewAdvisoryResult(rep.CropSuggestion),
		Severity:       advisor.Worst(rep.Severity(), advisor.WorstAlert(alerts)),
		Alerts:         alerts,
		Status:         advisor.StatusPanel(r),
		Headline:       advisor.Headline(r),
		Summary:        advisor.Summary(r),
	}, nil
}

// Localize returns a copy of ev with display texts translated to lang.
// Codes and severities are left untouched.
func Localize(ctx context.Context, tr translate.Translator, lang string, ev Evaluation) Evaluation {
	if translate.IsSource(lang) || tr == nil {
		return ev
	}
	text := func(s string) string { return translate.Text(ctx, tr, s, lang) }

	out := ev
	for _, res := range []*messages.AdvisoryResult{&out.Irrigation, &out.Fertilizer, &out.CropSuggestion} {
		if res.Message == "" {
			continue
		}
		res.Message = text(res.Message)
		findings := make([]advisor.Finding, len(res.Findings))
		for i, f := range res.Findings {
			f.Text = text(f.Text)
			findings[i] = f
		}
		res.Findings = findings
	}
	out.Alerts = make([]advisor.Alert, len(ev.Alerts))
	for i, a := range ev.Alerts {
		a.Message = text(a.Message)
		out.Alerts[i] = a
	}
	out.Status = make([]advisor.Status, len(ev.Status))
	for i, s := range ev.Status {
		s.Label = text(s.Label)
		out.Status[i] = s
	}
	out.Headline = text(ev.Headline)
	out.Summary = text(ev.Summary)
	return out
}
