package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var once bool
	var interval time.Duration
	var extra []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run verification passes without the API (once, or on an interval)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Engine.Seeds = append(cfg.Engine.Seeds, extra...)

			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !once {
				if interval <= 0 {
					interval = cfg.Interval()
				}
				svc.runner.Loop(ctx, interval)
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return svc.runner.Stop(stopCtx)
			}

			report, err := svc.runner.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("run %s: %w", report.RunID, err)
			}
			log.Infof("Run %s: %d probed, %d carried, %d rejected", report.RunID, report.Probed, report.Carried, len(report.Rejected))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run once, print the run report and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Run interval (defaults to engine.interval_seconds)")
	cmd.Flags().StringSliceVar(&extra, "seed", nil, "Additional seed domains for this invocation")
	return cmd
}
