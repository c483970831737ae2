package advisor

import (
	"fmt"
	"strings"
)

// Severity ranks advisories and alerts: ok < info < warning < critical.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

var severityNames = [...]string{"ok", "info", "warning", "critical"}

func (s Severity) String() string {
	if s < SeverityOK || s > SeverityCritical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity is the inverse of String.
func ParseSeverity(s string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range severityNames {
		if v == name {
			return Severity(i), nil
		}
	}
	return SeverityOK, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Worst returns the highest severity, SeverityOK when none is given.
func Worst(sevs ...Severity) Severity {
	w := SeverityOK
	for _, s := range sevs {
		if s > w {
			w = s
		}
	}
	return w
}
