package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sghealthtrack/healthtrack-api/internal/app"
	"github.com/sghealthtrack/healthtrack-api/internal/config"
	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/worker"
	"github.com/sghealthtrack/healthtrack-api/pkg/logger"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "SG HealthTrack background jobs",
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the retention archiver once and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := archiveRequest(cmd)
			if err != nil {
				return err
			}
			env, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.core.Close()

			summary, err := env.worker.RunOnce(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	archiveFlags(cmd)
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the retention archiver on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := archiveRequest(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.core.Close()

			cron, _ := cmd.Flags().GetString("cron")
			if cron == "" {
				cron = env.core.Config.Archive.Schedule
			}
			scheduler, err := env.worker.Schedule(ctx, cron, time.UTC, req)
			if err != nil {
				return err
			}
			defer scheduler.Stop()

			addr, _ := cmd.Flags().GetString("health-addr")
			srv := healthServer(addr, env.core.Registry)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("health check server failed")
				}
			}()

			<-ctx.Done()
			log.Info().Msg("shutting down worker...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	archiveFlags(cmd)
	cmd.Flags().String("cron", "", "Cron expression in UTC (defaults to archive.schedule)")
	cmd.Flags().String("health-addr", ":8081", "Address for /health/live and /metrics")
	return cmd
}

func archiveFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Count eligible rows without stamping them")
	cmd.Flags().Bool("include-files", true, "Also move x-ray files under the archive prefix")
	cmd.Flags().Int("batch-size", 0, "Maximum x-ray files per run (0 uses archive.batch_size)")
	cmd.Flags().String("cutoff", "", "ISO 8601 cutoff (defaults to now minus the retention period)")
}

func archiveRequest(cmd *cobra.Command) (model.ArchiveRequest, error) {
	flags := cmd.Flags()
	var req model.ArchiveRequest
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		req.DryRun = &v
	}
	if flags.Changed("include-files") {
		v, _ := flags.GetBool("include-files")
		req.IncludeFiles = &v
	}
	if flags.Changed("batch-size") {
		v, _ := flags.GetInt("batch-size")
		if v < 0 {
			return req, fmt.Errorf("batch-size must not be negative")
		}
		req.BatchSize = &v
	}
	req.CutoffISO, _ = flags.GetString("cutoff")
	return req, nil
}

type environment struct {
	core   *app.Core
	worker *worker.ArchiveWorker
}

func setup(ctx context.Context) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lg := app.NewLogger(cfg.Log)
	log.Logger = *lg.Zerolog()

	core, err := app.NewCore(cfg, lg)
	if err != nil {
		return nil, err
	}

	store, err := core.NewObjectStore(ctx)
	if err != nil {
		core.Close()
		return nil, err
	}

	w := worker.NewArchiveWorker(core.NewArchiver(store), lg.WithFields(map[string]interface{}{"process": "worker"}), 0)
	announce(ctx, core, lg)
	return &environment{core: core, worker: w}, nil
}

// announce tells live dashboards that a worker came up so they can reload
// archive state. It is best effort.
func announce(ctx context.Context, core *app.Core, lg *logger.Logger) {
	broker, err := core.NewBroker()
	if err != nil {
		lg.Warn("change events disabled", "error", err.Error())
		return
	}
	defer broker.Close()
	messaging.NewPublisher(broker, messaging.ChannelChanges, core.Metrics, *lg.Zerolog()).
		PublishChange(ctx, messaging.ChangeEvent{Table: "archive", Action: "worker_started"})
}

func healthServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
