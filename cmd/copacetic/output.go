package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/copacetic/health"
)

// outputFormat is a --output flag value.
type outputFormat string

const (
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

var _ pflag.Value = (*outputFormat)(nil)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(v string) error {
	switch outputFormat(v) {
	case formatJSON, formatYAML:
		*f = outputFormat(v)
		return nil
	default:
		return fmt.Errorf("must be %q or %q", formatJSON, formatYAML)
	}
}

func (f *outputFormat) Type() string { return "format" }

func writeReport(w io.Writer, format outputFormat, report health.Report) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// subset returns the report restricted to names, keeping report order.
func subset(report health.Report, names []string) health.Report {
	if len(names) == 0 {
		return report
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := health.Report{Name: report.Name, Healthy: true}
	for _, s := range report.Dependencies {
		if !want[s.Name] {
			continue
		}
		out.Dependencies = append(out.Dependencies, s)
		if !s.Healthy && s.Level == health.LevelHard {
			out.Healthy = false
		}
	}
	return out
}
