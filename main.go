package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"p9e.in/verifyops/config"
	"p9e.in/verifyops/handlers"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/pkg/accounts"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/notify"
	"p9e.in/verifyops/pkg/reports"
	"p9e.in/verifyops/pkg/scheduler"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {

	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, err := config.InitLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("could not initialise logger: %v", err)
	}
	defer logger.Sync()
	if !cfg.DotEnvLoaded {
		zap.S().Info("no .env file found, using system environment variables")
	}

	if err := run(cfg); err != nil {
		zap.S().Fatalw("server stopped", "error", err)
	}
}

func run(cfg *config.AppConfig) error {
	ctx := context.Background()

	db, err := config.Connect(cfg)
	if err != nil {
		return err
	}
	st := store.NewGormStore(db)

	ev, uploadDir, closeEvidence, err := evidenceStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeEvidence()

	var email notify.Sender
	if cfg.Email.SendGridAPIKey != "" {
		email = notify.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	}
	dispatcher := notify.NewDispatcher(notify.Config{
		EmailEnabled: cfg.Email.Enabled,
		SMSEnabled:   cfg.SMS.Enabled,
	}, email, nil)

	cases := casework.New(st, ev, dispatcher, casework.Options{
		PublicBaseURL:     cfg.PublicBaseURL,
		TokenTTLHours:     cfg.TokenTTLHours,
		ShortLinkTTLHours: cfg.ShortLinkTTLHours,
		TATDays:           cfg.TATDays,
	})
	acc := accounts.New(st)
	if err := config.SeedAdmin(ctx, acc, cfg.Admin); err != nil {
		zap.S().Warnw("admin bootstrap failed", "error", err)
	}
	exporter := reports.NewExporter(st, evidence.NewResolver(ev))

	jobs := scheduler.New(cases, scheduler.Config{
		TokenSweepSpec:   cfg.Scheduler.TokenSweepSpec,
		OverdueSweepSpec: cfg.Scheduler.OverdueSweepSpec,
	})
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	middleware.SetSecret(cfg.JWTSecret)
	if err := middleware.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return err
	}
	app := handlers.New(cases, acc, exporter, ev)
	handler := middleware.CORS(routes.RegisterRoutes(app, routes.Options{UploadDir: uploadDir}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("server starting", "port", cfg.Port, "version", Version, "publicBaseUrl", cfg.PublicBaseURL)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		zap.S().Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// evidenceStore picks GCS when USE_GCS is set, else local disk. The upload
// dir is returned only for the local store, which main serves under /uploads/.
func evidenceStore(ctx context.Context, sc config.StorageConfig) (evidence.Store, string, func(), error) {
	if sc.UseGCS {
		g, err := evidence.NewGCSStore(ctx, sc.Bucket, sc.CredentialsFile)
		if err != nil {
			return nil, "", nil, err
		}
		zap.S().Infow("evidence storage: gcs", "bucket", sc.Bucket)
		return g, "", func() { g.Close() }, nil
	}
	l, err := evidence.NewLocalStore(sc.LocalDir, sc.LocalBaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	zap.S().Infow("evidence storage: local", "dir", sc.LocalDir)
	return l, sc.LocalDir, func() {}, nil
}
