package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"birthday_reminder_bot/internal/app"
	"birthday_reminder_bot/internal/infra/config"
	idb "birthday_reminder_bot/internal/infra/database"
	"birthday_reminder_bot/internal/infra/logger"
	"birthday_reminder_bot/internal/infra/metrics"
	"birthday_reminder_bot/internal/infra/scheduler"
	"birthday_reminder_bot/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithField("environment", cfg.Environment).Info("Birthday Reminder Bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not prepare database schema")
	}
	mainLogger.Info("Database connection established successfully.")

	subjectRepo := idb.NewPostgresSubjectRepository(db)
	pendingStore := idb.NewPostgresPendingStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	tgClient := telegram.NewTelebotAdapter(bot)

	planner := app.NewPlanner(cfg.ReminderIDPrefix)
	reminderService := app.NewReminderService(subjectRepo, pendingStore, planner, cfg.PlanningHorizon, time.Now, m, logger.Component("reminder_service"))
	subjectService := app.NewSubjectService(subjectRepo, reminderService, cfg.OwnerTelegramID, time.Now, logger.Component("subject_service"))
	dispatchService := app.NewDispatchService(pendingStore, tgClient, cfg.OwnerTelegramID, time.Now, m, logger.Component("dispatch_service"))

	telegram.RegisterBotCommands(bot, cfg.OwnerTelegramID, logger.Component("telegram"))
	telegram.RegisterBirthdayHandlers(ctx, bot, subjectService, reminderService, cfg.OwnerTelegramID, logger.Component("telegram"))
	mainLogger.Info("Command handlers registered.")

	reminderScheduler := scheduler.NewReminderScheduler(
		reminderService,
		dispatchService,
		logger.Component("scheduler"),
		cfg.CronSpecReschedule,
		cfg.CronSpecDispatch,
	)
	// Startup counts as a data change: the store may hold reminders from an older snapshot.
	reminderScheduler.RunPlanningPass(ctx)
	if err := reminderScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reminder scheduler")
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("Metrics server stopped")
			}
		}()
		mainLogger.WithField("addr", cfg.MetricsAddr).Info("Metrics endpoint listening.")
	}

	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and scheduler are running.")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	reminderScheduler.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	mainLogger.Info("Application shut down gracefully.")
}
