package advisor

import (
	"testing"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

func TestStatusPanel(t *testing.T) {
	testCases := []struct {
		name    string
		reading entities.Reading
		want    []string
	}{
		{
			name: "everything healthy",
			reading: entities.Reading{
				SoilMoisture: entities.Float(55), Temperature: entities.Float(25), PH: entities.Float(6.8),
			},
			want: []string{"Moisture Optimal", "Temperature Healthy", "pH Balanced"},
		},
		{
			name: "dry hot acidic",
			reading: entities.Reading{
				SoilMoisture: entities.Float(12), Temperature: entities.Float(39), PH: entities.Float(5.2),
			},
			want: []string{"Irrigation Needed", "Heat Stress Risk", "pH Imbalance"},
		},
		{
			name: "wet cold alkaline",
			reading: entities.Reading{
				SoilMoisture: entities.Float(81), Temperature: entities.Float(10), PH: entities.Float(7.6),
			},
			want: []string{"Soil Too Wet", "Low Temperature — Growth Slows", "pH Imbalance"},
		},
		{
			name:    "moisture 75 is still optimal on the dashboard",
			reading: entities.Reading{SoilMoisture: entities.Float(75)},
			want:    []string{"Moisture Optimal"},
		},
		{
			name:    "missing fields produce no rows",
			reading: entities.Reading{},
			want:    []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := StatusPanel(tc.reading)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d rows, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i].Label != tc.want[i] {
					t.Errorf("row %d = %q, want %q", i, got[i].Label, tc.want[i])
				}
			}
		})
	}
}

func TestHeadline(t *testing.T) {
	testCases := []struct {
		name    string
		reading entities.Reading
		want    string
	}{
		{"moisture first", entities.Reading{SoilMoisture: entities.Float(20), PH: entities.Float(5), Temperature: entities.Float(40)}, "Low soil moisture! Irrigation needed."},
		{"then acidity", entities.Reading{SoilMoisture: entities.Float(40), PH: entities.Float(5), Temperature: entities.Float(40)}, "Soil too acidic!"},
		{"then heat", entities.Reading{SoilMoisture: entities.Float(40), PH: entities.Float(6), Temperature: entities.Float(40)}, "High temperature!"},
		{"normal", entities.Reading{SoilMoisture: entities.Float(40), PH: entities.Float(6), Temperature: entities.Float(30)}, "All conditions normal."},
		{"empty", entities.Reading{}, "All conditions normal."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Headline(tc.reading); got != tc.want {
				t.Errorf("Headline = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	got := Summary(entities.Reading{SoilMoisture: entities.Float(20), PH: entities.Float(5.9)})
	if got != "Soil: dry conditions — irrigation needed; pH: acidic." {
		t.Errorf("Summary = %q", got)
	}
	got = Summary(entities.Reading{SoilMoisture: entities.Float(45), PH: entities.Float(6.0)})
	if got != "Soil: healthy soil; pH: neutral/basic." {
		t.Errorf("Summary = %q", got)
	}
}
