package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential"
	credentialrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/department"
	departmentrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/department/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate"
	platerepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

type config struct {
	Addr    string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	QRWidth int    `env:"QR_WIDTH" envDefault:"300"`
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-plaques-go")

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("config: %v", err)
	}
	credCfg, err := credential.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	sessCfg, err := session.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	// init db
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()
	if err := database.Migrate(sqlDB); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")

	issuer, err := session.NewIssuer(sessCfg.Issuer, sessCfg.KeyFile)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}
	if sessCfg.KeyFile == "" {
		sugar.Warn("JWT_KEY_FILE not set; tokens are invalidated on restart")
	}

	accounts := accountrepo.NewAccountRepo(sqlxDB)
	sessions := sessionrepo.NewSessionRepo(sqlxDB)
	creds := credential.NewService(credentialrepo.NewCredentialRepo(sqlxDB), credCfg)
	sessSvc := session.NewService(sessCfg, issuer, creds, accounts, sessions, session.NewHub(), sugar)
	plateSvc := plate.NewService(platerepo.NewPlateRepo(sqlxDB), plate.NewQREncoder(cfg.QRWidth), sugar)
	accountSvc := account.NewService(accounts, creds, sugar)
	departmentSvc := department.NewService(departmentrepo.NewDepartmentRepo(sqlxDB), sugar)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := sessions.PurgeExpired(ctx); err != nil {
		sugar.Warnw("purge expired sessions", "err", err)
	} else if n > 0 {
		sugar.Infow("purged expired sessions", "count", n)
	}

	// mount http server
	handler := router.RegisterRoutes(sugar, router.Deps{
		Session:     sessSvc,
		Auth:        session.NewHandler(sessSvc, sugar),
		Plates:      plate.NewHandler(plateSvc, sugar),
		Accounts:    account.NewHandler(accountSvc, sugar),
		Departments: department.NewHandler(departmentSvc, sugar),
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
