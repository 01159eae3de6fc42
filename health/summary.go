package health

import "time"

// Summary is an immutable view of one dependency's health.
type Summary struct {
	Name    string `json:"name" yaml:"name"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Level   Level  `json:"level" yaml:"level"`

	// LastChecked is nil until the first check completes.
	LastChecked *time.Time `json:"lastChecked,omitempty" yaml:"lastChecked,omitempty"`

	// Dependencies holds nested summaries contributed by composite probes.
	Dependencies []Summary `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Details holds strategy-specific diagnostics.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Checked reports whether the dependency has been checked at least once.
func (s Summary) Checked() bool {
	return s.LastChecked != nil
}

// Clone returns a deep copy of s.
func (s Summary) Clone() Summary {
	if s.LastChecked != nil {
		at := *s.LastChecked
		s.LastChecked = &at
	}
	if s.Dependencies != nil {
		deps := make([]Summary, len(s.Dependencies))
		for i, d := range s.Dependencies {
			deps[i] = d.Clone()
		}
		s.Dependencies = deps
	}
	if s.Details != nil {
		details := make(map[string]any, len(s.Details))
		for k, v := range s.Details {
			details[k] = v
		}
		s.Details = details
	}
	return s
}

// Report is the aggregate health of a service.
type Report struct {
	Name         string    `json:"name" yaml:"name"`
	Healthy      bool      `json:"healthy" yaml:"healthy"`
	Dependencies []Summary `json:"dependencies" yaml:"dependencies"`
}
