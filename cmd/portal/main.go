package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grant_portal/internal/app"
	"grant_portal/internal/domain/alert"
	"grant_portal/internal/infra/config"
	idb "grant_portal/internal/infra/database"
	"grant_portal/internal/infra/email"
	"grant_portal/internal/infra/httpapi"
	"grant_portal/internal/infra/identityprovider"
	"grant_portal/internal/infra/logger"
	"grant_portal/internal/infra/scheduler"
	"grant_portal/internal/infra/telegram"
)

func main() {
	fmt.Println("Grant Portal lifecycle engine starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Reference zone: %s", cfg.LogLevel, cfg.Environment, cfg.ReferenceTimezone)

	refZone, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		log.Fatalf("Invalid REFERENCE_TIMEZONE %q: %v", cfg.ReferenceTimezone, err)
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	cycleRepo := idb.NewPostgresCycleRepository(db)
	appRepo := idb.NewPostgresApplicationRepository(db)
	payRepo := idb.NewPostgresPaymentRepository(db)
	seqRepo := idb.NewPostgresSequenceRepository(db)
	inviteRepo := idb.NewPostgresInviteRepository(db)
	log.Info("Repositories initialized.")

	// Collaborator adapters
	mailer := email.NewHTTPClient(cfg.EmailAPIURL, cfg.EmailAPIKey)
	verifier := identityprovider.NewJWTVerifier(cfg.JWTSecret)
	directory := identityprovider.NewHTTPDirectory(cfg.IdentityAPIURL, cfg.IdentityAPIKey)

	var escalator alert.Notifier
	if cfg.TelegramToken != "" && cfg.AdminChatID != 0 {
		notifier, err := telegram.NewAlertNotifier(cfg.TelegramToken, cfg.AdminChatID)
		if err != nil {
			log.Fatalf("Could not create Telegram escalation notifier: %v", err)
		}
		escalator = notifier
		log.Info("Telegram escalation channel configured.")
	} else {
		log.Warn("No Telegram escalation channel configured; fatal reconciliation alerts will be logged only.")
	}

	// Application services
	enrollmentService := app.NewEnrollmentService(seqRepo, cycleRepo, directory, log, refZone)
	reconciliationService := app.NewReconciliationService(payRepo, appRepo, cycleRepo, enrollmentService, mailer, escalator, log, cfg.EmailFromName, refZone)
	claimService := app.NewClaimService(inviteRepo, log)
	adminService := app.NewAdminService(cycleRepo, seqRepo, inviteRepo, cfg.AdminEmail)
	dispatchService := app.NewSequenceDispatchService(seqRepo, mailer, log, cfg.EmailFromName)
	log.Info("Application services initialized.")

	// Background dispatcher for due sequence emails
	dispatchScheduler := scheduler.NewDispatchScheduler(dispatchService, log, cfg.CronSpecDispatch)
	dispatchScheduler.Start()

	// HTTP trigger surface
	server := httpapi.NewServer(cfg.HTTPAddr, reconciliationService, claimService, adminService, cycleRepo, verifier, log, refZone)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("Application setup complete. Server and scheduler are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
	dispatchScheduler.Stop()
	// db.Close() is handled by defer
	log.Info("Application shut down gracefully.")
}
