package entities

import "strings"

// Farm identifies a monitored plot. Readings carry only the ID.
type Farm struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ParseFarms returns one Farm per non-empty id.
func ParseFarms(ids []string) []Farm {
	out := make([]Farm, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, Farm{ID: id})
	}
	return out
}
