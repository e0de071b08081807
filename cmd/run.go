package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"backupmgr/internal/backup"
	"backupmgr/internal/executor"
	"backupmgr/internal/metrics"
	"backupmgr/internal/schedule"
	"backupmgr/internal/status"
	"backupmgr/pkg/log"
)

func runCmd(g *globals) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every job that is due today and wait for all of them",
		Long: "Run every enabled job that is due today. Failed jobs are reported but the\n" +
			"command still exits 0 unless --strict is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := g.loadConfig(ctx)
			if err != nil {
				return err
			}

			logger, closer := log.New(cfg.Log)
			defer closer.Close()

			o, err := newOrchestrator(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer o.Close()

			report, err := o.run(ctx)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)

			if strict && report.HasFailures() {
				return fmt.Errorf("%d job(s) failed", len(report.Failed()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any job failed")
	return cmd
}

func daemonCmd(g *globals) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := g.loadConfig(ctx)
			if err != nil {
				return err
			}

			logger, closer := log.New(cfg.Log)
			defer closer.Close()

			rec := metrics.New()
			recorders := []executor.Recorder{rec}

			var server *status.Server
			if cfg.Status.Addr != "" {
				server = status.New(cfg.Status.Addr, rec.Handler(), logger)
				recorders = append(recorders, server)
			}

			o, err := newOrchestrator(ctx, cfg, logger, executor.Recorders(recorders...))
			if err != nil {
				return err
			}
			defer o.Close()

			trigger := func(ctx context.Context) error {
				_, err := o.run(ctx)
				return err
			}

			if server != nil {
				if err := server.Start(ctx); err != nil {
					return err
				}
				defer func() {
					_ = server.Stop(context.Background())
				}()
			}

			if runNow {
				if err := trigger(ctx); err != nil {
					o.logger.Error().Err(err).Msg("initial run failed")
				}
			}

			sched := schedule.NewScheduler(cfg.Schedule, trigger, o.logger)
			if err := sched.Start(); err != nil {
				return err
			}

			<-ctx.Done()
			o.logger.Info().Msg("shutting down")

			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return sched.Stop(stopCtx)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")
	return cmd
}

func printReport(w io.Writer, r *executor.Report) {
	if len(r.Outcomes) == 0 {
		fmt.Fprintln(w, "No jobs due today.")
		return
	}
	for _, o := range r.Outcomes {
		detail := ""
		switch {
		case o.Err != nil:
			detail = o.Err.Error()
		case o.Artifact != nil:
			detail = o.Artifact.Path
		}
		fmt.Fprintf(w, "%-9s\t%s\t%s\n", o.Status, o.Name, detail)
		if o.Pruned > 0 {
			fmt.Fprintf(w, "\t\tpruned %d old backup(s)\n", o.Pruned)
		}
		for _, err := range o.PruneErrors {
			fmt.Fprintf(w, "\t\tretention: %v\n", err)
		}
	}
	c := r.Counts()
	fmt.Fprintf(w, "run %s: %d succeeded, %d failed, %d skipped in %s\n",
		r.RunID, c[backup.StatusSucceeded], c[backup.StatusFailed], c[backup.StatusSkipped], r.Duration().Round(time.Millisecond))
}
