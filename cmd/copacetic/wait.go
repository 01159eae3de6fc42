package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/copacetic/observe"
	"github.com/jonwraymond/copacetic/observe/exporters"
)

func newWaitCmd(configPath *string) *cobra.Command {
	format := formatJSON
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait [dependency...]",
		Short: "Block until dependencies are healthy",
		Long: `Retry every configured dependency, or only the named ones, until all of
them are healthy. Gives up after --timeout (default: wait.timeout).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, *configPath, exporters.WithWriter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.WithoutCancel(ctx)) }()

			if cmd.Flags().Changed("timeout") {
				a.cfg.Wait.Timeout = timeout
			}
			if a.cfg.Wait.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Wait.Timeout)
				defer cancel()
			}

			opts := a.cfg.WaitOptions(args...)
			if len(opts.Dependencies) == 0 {
				return fmt.Errorf("copacetic: no dependencies to wait for")
			}

			start := time.Now()
			summaries, err := a.directScheduler().WaitFor(ctx, opts)
			if err != nil {
				return err
			}

			if err := writeReport(cmd.OutOrStdout(), format, subset(a.registry.Report(), args)); err != nil {
				return err
			}
			for _, s := range summaries {
				if !s.Healthy {
					return fmt.Errorf("%w: %q not healthy after %s", errUnhealthy, s.Name, time.Since(start).Round(time.Millisecond))
				}
			}
			a.logger.Info(ctx, "dependencies healthy",
				observe.Field{Key: "waited_ms", Value: time.Since(start).Milliseconds()},
			)
			return nil
		},
	}
	cmd.Flags().VarP(&format, "output", "o", "Output format: json or yaml")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long; 0 waits forever")
	return cmd
}
