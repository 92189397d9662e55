package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sghealthtrack/healthtrack-api/internal/app"
	"github.com/sghealthtrack/healthtrack-api/internal/config"
	"github.com/sghealthtrack/healthtrack-api/internal/email"
	"github.com/sghealthtrack/healthtrack-api/internal/handler"
	adminhandler "github.com/sghealthtrack/healthtrack-api/internal/handler/admin"
	appointmenthandler "github.com/sghealthtrack/healthtrack-api/internal/handler/appointment"
	archivehandler "github.com/sghealthtrack/healthtrack-api/internal/handler/archive"
	authhandler "github.com/sghealthtrack/healthtrack-api/internal/handler/auth"
	eventhandler "github.com/sghealthtrack/healthtrack-api/internal/handler/event"
	notificationhandler "github.com/sghealthtrack/healthtrack-api/internal/handler/notification"
	reporthandler "github.com/sghealthtrack/healthtrack-api/internal/handler/report"
	staffhandler "github.com/sghealthtrack/healthtrack-api/internal/handler/staff"
	"github.com/sghealthtrack/healthtrack-api/internal/middleware"
	"github.com/sghealthtrack/healthtrack-api/internal/repository/postgres"
	"github.com/sghealthtrack/healthtrack-api/internal/router"
	authservice "github.com/sghealthtrack/healthtrack-api/internal/service/auth"
	"github.com/sghealthtrack/healthtrack-api/internal/service/notification"
	reportservice "github.com/sghealthtrack/healthtrack-api/internal/service/report"
	"github.com/sghealthtrack/healthtrack-api/internal/service/workflow"
	"github.com/sghealthtrack/healthtrack-api/pkg/messaging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)
	log.Logger = *logger.Zerolog()

	core, err := app.NewCore(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer core.Close()

	broker, err := core.NewBroker()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	store, err := core.NewObjectStore(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}

	zl := *logger.Zerolog()
	publisher := messaging.NewPublisher(broker, messaging.ChannelChanges, core.Metrics, zl)

	// Repositories
	db := core.DB
	appointmentRepo := postgres.NewAppointmentRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	// Services
	var mailer email.Service = email.NewNoopService()
	if smtp := (email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}); smtp.Enabled() {
		mailer = email.NewSMTPService(smtp)
	}
	notificationRepo := postgres.NewNotificationRepository(db)
	notifier := notification.NewService(notificationRepo, profileRepo, mailer, publisher, zl)

	workflowSvc := workflow.NewService(workflow.Deps{
		Appointments: appointmentRepo,
		Steps:        postgres.NewStepsRepository(db),
		Requirements: postgres.NewRequirementsRepository(db),
		Payments:     postgres.NewPaymentRepository(db),
		Clinical:     postgres.NewClinicalRepository(db),
		Notifier:     notifier,
		Auditor:      core.Auditor,
		Publisher:    publisher,
		Metrics:      core.Metrics,
		Logger:       zl.With().Str("component", "workflow").Logger(),
	})

	var verifier authservice.Verifier
	if cfg.Supabase.JWTSecret != "" {
		verifier = authservice.NewJWTVerifier(cfg.Supabase.JWTSecret)
	} else {
		verifier = authservice.NewGoTrueVerifier(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
	}
	authSvc := authservice.NewService(verifier, profileRepo, cfg.Auth.RoleCacheTTL)

	archiveSvc := core.NewArchiver(store)
	reportSvc := reportservice.NewService(cfg.Report, logger)

	// Router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		handler.NewHandler(db, core.Registry),
		authhandler.NewHandler(authSvc),
		[]router.Handler{
			eventhandler.NewHandler(publisher),
			appointmenthandler.NewHandler(workflowSvc),
			adminhandler.NewHandler(workflowSvc),
			staffhandler.NewHandler(workflowSvc),
			notificationhandler.NewHandler(notification.NewInbox(notificationRepo)),
			reporthandler.NewHandler(reportSvc),
			archivehandler.NewHandler(archiveSvc),
		},
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSOrigins:      cfg.Supabase.CORSOrigins(),
			MetricsPrefix:    cfg.Server.MetricsNamespace + "_http",
			Registerer:       core.Registry,
			Logger:           zl,
		},
	)
	r.Setup()

	srv := newServer(fmt.Sprintf(":%d", cfg.Server.Port), r.Engine(), time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("SG HealthTrack backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// newServer builds the HTTP server. Request contexts derive from a base
// context that is cancelled when Shutdown starts, so open /api/events
// streams end instead of holding Shutdown until its deadline.
func newServer(addr string, h http.Handler, readTimeout time.Duration) *http.Server {
	base, cancelStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        addr,
		Handler:     h,
		ReadTimeout: readTimeout,
		// No write timeout: /api/events holds the response open.
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancelStreams)
	return srv
}
