// Package server initializes and runs the medchain server: it opens the
// database, runs migrations, selects the content store and anchor adapter
// from configuration, wires the services together and serves the HTTP API
// until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/medchain/medchain-server/internal/logging"
	"github.com/medchain/medchain-server/internal/server/anchor"
	"github.com/medchain/medchain-server/internal/server/anchoring"
	"github.com/medchain/medchain-server/internal/server/analysis"
	"github.com/medchain/medchain-server/internal/server/authz"
	"github.com/medchain/medchain-server/internal/server/config"
	"github.com/medchain/medchain-server/internal/server/consents"
	"github.com/medchain/medchain-server/internal/server/contentstore"
	"github.com/medchain/medchain-server/internal/server/httpapi"
	"github.com/medchain/medchain-server/internal/server/records"
	"github.com/medchain/medchain-server/internal/server/repositories/repomanager"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	httpSrv *httpapi.Server

	// closers shut down adapters that hold connections, in reverse order.
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	app := &App{config: c, logger: logger}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := app.newContentStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	ledger, err := app.newAnchorAdapter(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	recordService := records.NewService(db, repos, store, logger)
	consentService := consents.NewService(db, repos, logger)
	authorizer := authz.New(recordService, consentService)
	coordinator := anchoring.NewCoordinator(recordService, ledger, logger)
	analyzer := analysis.NewOllamaGateway(analysis.OllamaConfig{
		BaseURL: c.AnalysisEndpoint,
		Model:   c.AnalysisModel,
		Timeout: c.ExternalTimeout,
	}, logger)

	app.httpSrv = httpapi.NewServer(
		httpapi.Config{Addr: c.EndpointAddrHTTP, JWTSecret: []byte(c.SecretKey)},
		recordService, consentService, authorizer, coordinator, analyzer, logger)

	return app, nil
}

func (app *App) newContentStore(ctx context.Context) (contentstore.Store, error) {
	switch app.config.ContentStoreKind {
	case config.StoreS3:
		store, err := contentstore.NewS3Store(ctx, contentstore.S3Config{
			User:         app.config.S3RootUser,
			Password:     app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			Timeout:      app.config.ExternalTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("content store init: %w", err)
		}
		return store, nil
	case config.StoreLocal:
		store, err := contentstore.NewLocalStore(app.config.ContentStorePath)
		if err != nil {
			return nil, fmt.Errorf("content store init: %w", err)
		}
		app.closers = append(app.closers, store)
		return store, nil
	case config.StoreMemory:
		app.logger.Warn(ctx, "using in-memory content store, data will not survive a restart")
		return contentstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown content store kind %q", app.config.ContentStoreKind)
	}
}

// newAnchorAdapter returns the Fabric adapter when an endpoint is configured.
// Otherwise it falls back to the null adapter, loudly: the fallback never
// happens silently and must not reach production.
func (app *App) newAnchorAdapter(ctx context.Context) (anchor.Adapter, error) {
	if app.config.FabricEndpoint == "" {
		app.logger.Warn(ctx, "no fabric endpoint configured, anchoring with NULL adapter: tx refs are fake and nothing reaches a ledger")
		return anchor.NewNullAdapter(), nil
	}

	adapter, err := anchor.NewFabricAdapter(anchor.FabricConfig{
		Endpoint:    app.config.FabricEndpoint,
		GatewayPeer: app.config.FabricGatewayPeer,
		MSPID:       app.config.FabricMSPID,
		CertPath:    app.config.FabricCertPath,
		KeyDirPath:  app.config.FabricKeyDirPath,
		TLSCertPath: app.config.FabricTLSCertPath,
		Channel:     app.config.FabricChannel,
		Chaincode:   app.config.FabricChaincode,
		Timeout:     app.config.ExternalTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("anchor adapter init: %w", err)
	}
	app.closers = append(app.closers, adapter)
	return adapter, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.httpSrv.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err.Error())
	}

	app.Close()
}

// Close releases adapters and the database connection.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i].Close()
	}
	app.closers = nil
	if app.db != nil {
		app.db.Close()
		app.db = nil
	}
}
