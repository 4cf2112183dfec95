package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uptime-inspector/api"
	"uptime-inspector/config"
	"uptime-inspector/docstore"
	"uptime-inspector/history"
	"uptime-inspector/inspection"
	"uptime-inspector/logging"
	"uptime-inspector/model"
	"uptime-inspector/notify"
	"uptime-inspector/registry"
	"uptime-inspector/stats"
	"uptime-inspector/uptime"
)

func main() {
	configPath := flag.String("config", os.Getenv("UPTIME_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Default().Fatal("Failed to load config", zap.Error(err))
	}
	logger := logging.New(logging.Options{
		Disable: cfg.Log.Disable,
		Console: cfg.Log.Console,
		Files:   cfg.Log.Files,
		Level:   cfg.Log.Level,
	})
	defer func() { _ = logger.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	// Initialize uptime checker
	checker := uptime.New(
		uptime.WithWorkers(cfg.Probe.Workers),
		uptime.WithTimeout(cfg.ProbeTimeout()),
		uptime.WithLogLevel(uptime.LogInfo), // menu probe logs
		uptime.WithInternalLogs(cfg.Log.Level == "debug"),
		uptime.WithLogger(logger.Named("probe")),
	)

	systems := registry.New(store, logger.Named("registry"))
	hist := history.New(store, history.WithLocation(loc), history.WithLogger(logger.Named("history")))
	assembler := inspection.NewAssembler(systems, checker, logger.Named("assembler"))
	orchestrator := inspection.NewOrchestrator(systems, assembler, hist, logger.Named("sweep"))
	aggregator := stats.New(hist, systems, stats.WithLocation(loc), stats.WithLogger(logger.Named("stats")))

	transport := notify.NewSMTPTransport(notify.SMTPConfig{
		Host:     cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if !transport.Configured() {
		logger.Warn("SMTP credentials not set; report mail will fail")
	}
	notifier := notify.NewNotifier(orchestrator, transport, logger.Named("notify"))

	schedOpts := []inspection.SchedulerOption{
		inspection.WithInterval(cfg.SchedulerInterval()),
		inspection.WithSchedulerLogger(logger.Named("scheduler")),
	}
	if recipients, err := notify.ParseRecipients(cfg.Scheduler.Recipients); err == nil {
		schedOpts = append(schedOpts, inspection.WithPostSweep(func(ctx context.Context, sw model.Sweep) {
			if err := notifier.SendSweep(ctx, recipients, sw); err != nil {
				logger.Warn("Scheduled report not sent", zap.Error(err))
			}
		}))
	}
	scheduler := inspection.NewScheduler(orchestrator, schedOpts...)
	if cfg.Scheduler.Enabled {
		scheduler.Start()
		defer scheduler.Stop()
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		Inspector:          orchestrator,
		History:            hist,
		Stats:              aggregator,
		Notifier:           notifier,
		Prober:             checker,
		Scheduler:          scheduler,
		Systems:            systems,
		HeaderCheckTimeout: cfg.HeaderCheckTimeout(),
		Logger:             logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server running", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
