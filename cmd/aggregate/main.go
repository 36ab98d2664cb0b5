package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	ipfsadapter "github.com/netvote/aggregate/internal/adapter/driven/ipfs"
	jsonadapter "github.com/netvote/aggregate/internal/adapter/driven/jsonserver"
	netrosaadapter "github.com/netvote/aggregate/internal/adapter/driven/netrosa"
	redcapadapter "github.com/netvote/aggregate/internal/adapter/driven/redcap"
	sqliteadapter "github.com/netvote/aggregate/internal/adapter/driven/sqlite"
	worksheetadapter "github.com/netvote/aggregate/internal/adapter/driven/worksheet"
	httphandler "github.com/netvote/aggregate/internal/adapter/driving/http"
	"github.com/netvote/aggregate/internal/application"
	"github.com/netvote/aggregate/internal/config"
	"github.com/netvote/aggregate/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sweep_interval", cfg.SweepInterval,
		"netrosa_endpoint", cfg.NetrosaEndpoint,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire storage adapters.
	if cfg.SecretKey == nil {
		slog.Warn("AGGREGATE_SECRET_KEY not set; credential storage is disabled and publishers cannot be created")
	}

	taskStore := sqliteadapter.NewTaskRepo(db)
	credStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	formStore := sqliteadapter.NewFormRepo(db)
	subSource := sqliteadapter.NewSubmissionRepo(db)

	// 6. Wire destination clients and the shared delivery lock set.
	deps := application.PublisherDeps{
		Tasks:            taskStore,
		Creds:            credStore,
		Subs:             subSource,
		Locks:            application.NewDeliveryLocks(),
		Logger:           slog.Default(),
		Registry:         netrosaadapter.NewClient(cfg.NetrosaEndpoint),
		Content:          ipfsadapter.NewClient(cfg.IPFSPinURL),
		ContentAPIKey:    cfg.IPFSAPIKey,
		Records:          redcapadapter.NewClient(),
		JSON:             jsonadapter.NewClient(),
		Sheets:           worksheetadapter.NewClient(),
		FormPollInterval: cfg.FormPollInterval,
		FormOpenTimeout:  cfg.FormOpenTimeout,
	}
	newPublisher := func(task *model.PublishTask, cred *model.Credential, form *model.Form) (application.Publisher, error) {
		return application.NewPublisher(deps, task, cred, form)
	}

	// 7. Create and start the delivery runner.
	runner := application.NewRunner(taskStore, credStore, formStore, subSource, newPublisher, cfg.SweepInterval)
	go runner.Start(ctx)

	// 8. Create admin service and HTTP handler.
	admin := application.NewAdminService(taskStore, credStore, formStore, runner, newPublisher, cfg.SettleDelay, slog.Default())
	handler := httphandler.NewServeMux(httphandler.NewHandler(admin, slog.Default()), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Creating a netvote publisher blocks on remote provisioning, so
		// the write timeout must cover the registration poll budget.
		WriteTimeout: cfg.FormOpenTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("aggregate started",
		"listen_addr", cfg.ListenAddr,
		"sweep_interval", cfg.SweepInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
