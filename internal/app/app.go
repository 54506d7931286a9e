package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/sr"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/auth"
	"github.com/niksmo/storefront/internal/adapter/cms"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/payment"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/retry"
	"github.com/niksmo/storefront/pkg/schema"
)

const cmsRetryDelay = 200 * time.Millisecond

type serdes struct {
	checkoutEvent schema.Serde
}

type outbound struct {
	sqlDB            *storage.SQLDB
	redis            *goredis.Client
	carts            port.CartPersister
	sessions         port.SessionCreator
	cms              *cms.Client
	buyers           port.BuyerResolver
	checkoutProducer *kafka.CheckoutEventsProducer
}

type streams struct {
	tracker *kafka.CheckoutTrackerProcessor
	view    *kafka.CheckoutView
}

type coreService struct {
	carts    *service.CartRegistry
	checkout *service.CheckoutIntentBuilder
	service  service.Service
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	tlsConfig  *tls.Config
	serdes     serdes
	outbound   outbound
	streams    streams
	service    coreService
	httpServer httphandler.HTTPServer
	wg         sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initTLS()
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initStreams()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	level, _ := app.cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initTLS() {
	const op = "App.initTLS"

	if !app.cfg.BrokerEnabled() || !app.cfg.BrokerTLSEnabled() {
		return
	}

	files := app.cfg.Broker.TLS
	tlsConfig, err := adapter.MakeTLSConfig(files.CA, files.Cert, files.Key)
	if err != nil {
		app.fallDown(op, err)
	}
	kafka.ConfigureTLS(tlsConfig)
	app.tlsConfig = tlsConfig
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	if !app.cfg.BrokerEnabled() {
		return
	}

	srOpts := []sr.ClientOpt{sr.URLs(app.cfg.Broker.SchemaRegistryURLs...)}
	if app.tlsConfig != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(app.tlsConfig))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	checkoutEventSS := app.cfg.Broker.Topics.CheckoutEvents + "-value"
	checkoutEventSerde, err := schema.NewSerdeCheckoutEventV1(
		app.ctx,
		schema.SubjectOpt(checkoutEventSS),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.checkoutEvent = checkoutEventSerde
}

func (app *App) initOutboundAdapters() {
	app.initCartStorage()
	app.initPayment()
	app.initCMS()
	app.initAuth()
	app.initCheckoutProducer()
}

func (app *App) initCartStorage() {
	const op = "App.initCartStorage"

	switch app.cfg.Cart.Storage {
	case config.CartStoragePostgres:
		sqlDB, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.sqlDB = &sqlDB
		app.outbound.carts = storage.NewCartsRepository(sqlDB)
	case config.CartStorageRedis:
		rc := app.cfg.Redis
		rdb, err := storage.NewRedisClient(app.ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.redis = rdb
		app.outbound.carts = storage.NewRedisCarts(rdb, rc.TTL)
	default:
		slog.Warn("carts are kept in memory only", "op", op)
		app.outbound.carts = storage.NewMemoryCarts()
	}
}

func (app *App) initPayment() {
	const op = "App.initPayment"

	sessions, err := payment.NewStripeSessions(
		app.cfg.Payment.SecretKey, app.cfg.BaseURL, app.cfg.Payment.Currency,
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.sessions = sessions
}

func (app *App) initCMS() {
	const op = "App.initCMS"

	c := app.cfg.CMS
	client, err := cms.NewClient(cms.ClientConfig{
		ProjectID:  c.ProjectID,
		Dataset:    c.Dataset,
		APIVersion: c.APIVersion,
		Token:      c.Token,
		BaseURL:    c.BaseURL,
		Retry: retry.RetryConfig{
			MaxAttempts: c.RetryAttempts,
			Backoff:     retry.ExponentialBackoff(cmsRetryDelay),
		},
	})
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.cms = client
}

func (app *App) initAuth() {
	const op = "App.initAuth"

	a := app.cfg.Auth
	var opts []auth.VerifierOpt
	if a.HMACSecret != "" {
		opts = append(opts, auth.HMACSecretOpt(a.HMACSecret))
	}
	if a.RSAPublicKeyFile != "" {
		opts = append(opts, auth.RSAPublicKeyFileOpt(a.RSAPublicKeyFile))
	}
	if a.Issuer != "" {
		opts = append(opts, auth.IssuerOpt(a.Issuer))
	}

	verifier, err := auth.NewTokenVerifier(opts...)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.buyers = verifier
}

func (app *App) initCheckoutProducer() {
	const op = "App.initCheckoutProducer"

	if !app.cfg.BrokerEnabled() {
		slog.Info("broker is not configured, checkout events are off", "op", op)
		return
	}

	b := app.cfg.Broker
	producer, err := kafka.NewCheckoutEventsProducer(
		kafka.ProducerClientOpt(
			app.ctx, b.SeedBrokers, b.Topics.CheckoutEvents, app.tlsConfig,
		),
		kafka.ProducerEncoderOpt(app.serdes.checkoutEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.checkoutProducer = &producer
}

func (app *App) initCoreService() {
	var opts []service.CheckoutOpt
	if p := app.outbound.checkoutProducer; p != nil {
		opts = append(opts, service.WithCheckoutNotifier(*p))
	}

	app.service.carts = service.NewCartRegistry(app.outbound.carts)
	app.service.checkout = service.NewCheckoutIntentBuilder(
		app.outbound.sessions, opts...,
	)
	app.service.service = service.New(app.outbound.cms, app.outbound.cms)
}

func (app *App) initStreams() {
	const op = "App.initStreams"

	if !app.cfg.BrokerEnabled() {
		return
	}

	b := app.cfg.Broker
	tracker, err := kafka.NewCheckoutTrackerProc(
		b.SeedBrokers,
		b.Topics.CheckoutEvents,
		b.Consumers.CheckoutTrackerGroup,
		app.serdes.checkoutEvent,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	view, err := kafka.NewCheckoutView(kafka.CheckoutViewConfig{
		SeedBrokers: b.SeedBrokers,
		Group:       b.Consumers.CheckoutTrackerGroup,
		TLSConfig:   app.tlsConfig,
	})
	if err != nil {
		app.fallDown(op, err)
	}

	app.streams.tracker = tracker
	app.streams.view = view
}

func (app *App) initInboundAdapters() {
	routerConfig := httphandler.RouterConfig{
		AllowedOrigins: app.cfg.AllowedOrigins,
		Carts:          app.service.carts,
		Submitter:      app.service.checkout,
		Addresses:      app.service.service,
		Subscriptions:  app.service.service,
		Buyers:         app.outbound.buyers,
	}
	if app.streams.view != nil {
		routerConfig.Lookup = app.streams.view
	}

	handler := httphandler.NewRouter(routerConfig)
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, handler)
}

// Run starts the background loops and the http server.
// stopFn is called when any of them stops unexpectedly.
func (app *App) Run(stopFn context.CancelFunc) {
	go app.service.carts.Run(
		app.ctx, app.cfg.Cart.SweepInterval, app.cfg.Cart.IdleTimeout,
	)

	if app.streams.tracker != nil {
		app.wg.Add(1)
		go app.streams.tracker.Run(app.ctx, stopFn, &app.wg)
		go app.streams.view.Run(app.ctx)
		app.wg.Wait()
	}

	go app.httpServer.Run(stopFn)

	slog.Info("application is running", "addr", app.cfg.HTTPServerAddr)
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)

	if app.streams.tracker != nil {
		app.streams.tracker.Close()
	}
	if p := app.outbound.checkoutProducer; p != nil {
		p.Close()
	}
	if app.outbound.redis != nil {
		if err := app.outbound.redis.Close(); err != nil {
			slog.Error("failed to close redis client", "err", err)
		}
	}
	if app.outbound.sqlDB != nil {
		app.outbound.sqlDB.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
