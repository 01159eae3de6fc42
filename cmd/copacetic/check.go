package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/copacetic/health"
	"github.com/jonwraymond/copacetic/observe/exporters"
)

func newCheckCmd(configPath *string) *cobra.Command {
	format := formatJSON
	var sequential bool

	cmd := &cobra.Command{
		Use:   "check [dependency...]",
		Short: "Check dependencies once and print the report",
		Long: `Check every configured dependency, or only the named ones, with a single
attempt each. Exits non-zero when a HARD dependency is unhealthy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, *configPath, exporters.WithWriter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.WithoutCancel(ctx)) }()

			if err := runCheck(ctx, a, args, sequential); err != nil {
				return err
			}
			report := subset(a.registry.Report(), args)
			if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if !report.Healthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().VarP(&format, "output", "o", "Output format: json or yaml")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Check dependencies one at a time")
	return cmd
}

func runCheck(ctx context.Context, a *app, names []string, sequential bool) error {
	s := a.directScheduler()
	if len(names) == 0 {
		_, err := s.CheckAll(ctx, !sequential)
		return err
	}
	entries := make([]health.CheckEntry, len(names))
	for i, n := range names {
		entries[i] = health.CheckEntry{Name: n}
	}
	_, err := s.CheckMany(ctx, entries, !sequential)
	return err
}
