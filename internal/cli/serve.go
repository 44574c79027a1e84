package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomatolover555/windrose-ai/internal/api"
	"github.com/tomatolover555/windrose-ai/internal/config"
	"github.com/tomatolover555/windrose-ai/internal/runner"
)

func serveCmd() *cobra.Command {
	var noRuns bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory API and run verification on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Infof("Starting windrose v%s", version)

			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if !noRuns {
				go svc.runner.Loop(ctx, cfg.Interval())
			} else {
				log.Info("Scheduled runs disabled")
			}

			apiServer := api.NewServer(cfg, svc.manager, svc.runner, svc.submissions, svc.metrics)
			serverErr := make(chan error, 1)
			go func() {
				if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			log.Infof("Service started on %s", cfg.API.Addr)
			return waitForShutdown(cancel, cfg, apiServer, svc.runner, serverErr)
		},
	}
	cmd.Flags().BoolVar(&noRuns, "no-runs", false, "Serve the API only, without scheduled verification runs")
	return cmd
}

// waitForShutdown blocks until SIGINT/SIGTERM or a server failure, then stops
// the API and waits for the active run. SIGHUP re-reads the config file and
// applies its logging section.
func waitForShutdown(cancel context.CancelFunc, cfg *config.Config, apiServer *api.Server, runs *runner.Runner, serverErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	var runErr error
wait:
	for {
		select {
		case sig := <-sigChan:
			if sig != syscall.SIGHUP {
				break wait
			}
			if rf.ConfigPath == "" {
				log.Warn("SIGHUP ignored: no config file")
				continue
			}
			if err := cfg.Reload(); err != nil {
				log.Errorf("Config reload failed: %v", err)
				continue
			}
			setupLogging(cfg.Logging)
			log.Info("Config reloaded")
		case err := <-serverErr:
			log.Errorf("API server failed: %v", err)
			runErr = err
			break wait
		}
	}

	log.Info("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	// The active run commits before storage is closed by the caller.
	if err := runs.Stop(shutdownCtx); err != nil {
		log.Errorf("Run did not finish before shutdown: %v", err)
	}

	log.Info("Shutdown complete")
	return runErr
}
