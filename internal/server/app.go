// Package server wires the sync server together: the Postgres remote store,
// the gRPC RemoteStore endpoint, the realtime websocket hub and the
// presigned export URLs.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/auth"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/server/config"
	"github.com/anbuneel/zenote-sub001/internal/server/exports"
	"github.com/anbuneel/zenote-sub001/internal/server/realtime"
	"github.com/anbuneel/zenote-sub001/internal/server/repositories/remotestore"
	"github.com/anbuneel/zenote-sub001/internal/server/repositories/repomanager"
	"github.com/anbuneel/zenote-sub001/internal/shares"

	gs "github.com/anbuneel/zenote-sub001/internal/server/grpc"
)

const ledgerPurgeInterval = time.Hour

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	hub    *realtime.Hub
	store  *remotestore.PostgresStore
	grpc   *gs.GRPCServer
	http   *http.Server
}

// NewApp connects to the database, migrates it and builds every listener.
func NewApp(ctx context.Context, c *config.Config, rm repomanager.RepositoryManager, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	presigner, err := exports.NewPresigner(ctx, exports.Settings{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Expiry:       c.ExportURLExpiry,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("exports init error: %w", err)
	}

	hub := realtime.NewHub(logger)
	store := rm.RemoteStore(db, hub, logger)
	issuer := shares.NewIssuer(store.Unscoped(), "", logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		hub:    hub,
		store:  store,
		grpc:   gs.NewGRPCServer(c.EndpointAddrGRPC, logger, store, issuer, presigner, c.SecretKey),
		http: &http.Server{
			Addr:              c.EndpointAddrHTTP,
			Handler:           realtime.Mux(hub, []byte(c.SecretKey)),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// MintToken issues an access token for userID signed with the configured
// secret. It backs the "token" subcommand used in development.
func MintToken(c *config.Config, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return auth.GenerateToken(userID, []byte(c.SecretKey), c.AccessTokenValidityDuration)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.http.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting realtime HTTP server", "address", app.http.Addr)
	if err := app.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a signal arrives, then closes the
// database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		runLedgerPurge(ctx, app.store, app.config.LedgerRetention, ledgerPurgeInterval, time.Now, app.logger)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
