// Command scribe runs the transcription orchestration service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/dispatch"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/httpapi"
	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/intake"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/kafka/consumer"
	"github.com/kbukum/scribe/kafka/producer"
	"github.com/kbukum/scribe/ledger"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/migrations"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/version"

	_ "github.com/kbukum/scribe/storage/local"
	_ "github.com/kbukum/scribe/storage/s3"
	_ "github.com/kbukum/scribe/supplier/accurate"
	_ "github.com/kbukum/scribe/supplier/fast"
)

const (
	serviceName = "scribe"
	reusePrefix = "scribe:reuse"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Init(ctx, cfg.Observability, observability.Resource{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, log)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdownTelemetry))

	models := append(append(jobs.Models(), queue.Models()...), ledger.Models()...)
	db := database.NewComponent(cfg.Database, log).
		WithAutoMigrate(models...).
		WithMigrations(migrations.FS, migrations.Path)
	if err := app.RegisterComponent(db); err != nil {
		return err
	}

	var cache *redis.Component
	if cfg.Redis.Enabled {
		cache = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(cache); err != nil {
			return err
		}
	}

	app.OnConfigure(func(ctx context.Context, app *bootstrap.App[*Config]) error {
		return wire(ctx, app, db, cache)
	})
	return app.Run(ctx)
}

// wire builds the domain once the database and cache are up and registers
// the components that serve it.
func wire(ctx context.Context, app *bootstrap.App[*Config], dbc *database.Component, cache *redis.Component) error {
	cfg := app.Cfg
	log := app.Logger

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := app.RegisterComponent(storage.NewComponent(store)); err != nil {
		return err
	}

	db := dbc.DB()
	jobStore := jobs.NewStore(db, log)
	queueStore := queue.NewStore(db, log)
	led := ledger.New(db, cfg.Ledger.Plans, log, metrics)

	suppliers, err := supplier.Build(cfg.Suppliers, log)
	if err != nil {
		return err
	}

	kc, publisher, err := messaging(app)
	if err != nil {
		return err
	}

	resolver, err := audioResolver(cfg, jobStore, cache, store, log)
	if err != nil {
		return err
	}

	dispatchOpts := []dispatch.Option{dispatch.WithEvents(publisher), dispatch.WithMetrics(metrics)}
	if cfg.Queue.Enabled {
		dispatchOpts = append(dispatchOpts, dispatch.WithQueue(queueStore))
	}
	dispatcher := dispatch.New(cfg.Dispatch, suppliers, jobStore, log, dispatchOpts...)
	ingestor := ingest.New(cfg.Callback, jobStore, suppliers, led, log,
		ingest.WithEvents(publisher), ingest.WithMetrics(metrics))
	prep := intake.New(jobStore, resolver, suppliers, dispatcher, publisher, log)

	tokens, err := jwt.NewService(cfg.Auth, func() *jwt.Claims { return &jwt.Claims{} })
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := server.New(cfg.Server, log)
	if cfg.Storage.Provider == storage.ProviderLocal {
		srv.ServeMedia(cfg.Storage.Local.BasePath)
	}

	deps := httpapi.Deps{
		Suppliers:   suppliers,
		Callbacks:   ingestor,
		Intake:      prep,
		Usage:       led,
		Auth:        middleware.Auth(httpapi.TokenValidator(tokens)),
		Health:      app.Components.HealthAll,
		ServiceName: cfg.Name,
		Version:     version.Short(),
		Log:         log,
	}
	if cfg.Queue.Enabled {
		deps.Queue = queue.NewWorker(queueStore, jobStore, suppliers, ingestor, log)
		limit, err := middleware.RateLimit(cfg.RateLimit, middleware.UserKey, log)
		if err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		deps.ProcessLimit = limit
		if err := app.RegisterComponent(queue.NewSweeper(cfg.Queue, queueStore, log)); err != nil {
			return err
		}
	}
	httpapi.New(deps).Register(srv.Engine())

	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}
	if kc == nil {
		return nil
	}
	if err := consumeGrants(kc, cfg.Kafka, led, log); err != nil {
		return err
	}
	return app.RegisterComponent(kc)
}

// messaging builds the Kafka component and its job event publisher. With
// Kafka disabled the component is nil and events are dropped.
func messaging(app *bootstrap.App[*Config]) (*kafka.Component, events.Publisher, error) {
	cfg := app.Cfg.Kafka
	if !cfg.Enabled {
		app.Logger.Info("Kafka disabled, job events are dropped")
		return nil, events.Nop{}, nil
	}
	p, err := producer.NewProducer(cfg, app.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	kc := kafka.NewComponent(cfg, app.Logger)
	kc.SetProducer(p)
	return kc, events.NewKafkaPublisher(producer.NewPublisher(p), cfg.Topics.JobEvents), nil
}

func consumeGrants(kc *kafka.Component, cfg kafka.Config, led *ledger.Ledger, log *logger.Logger) error {
	if cfg.Topics.PackGrants == "" {
		return nil
	}
	c, err := consumer.NewConsumer(cfg, cfg.Topics.PackGrants, log)
	if err != nil {
		return fmt.Errorf("pack grant consumer: %w", err)
	}
	kc.AddConsumer(consumer.AsRunner(c, ledger.NewGrantConsumer(led, log).Handle))
	return nil
}

func audioResolver(cfg *Config, lookup audio.Lookup, cache *redis.Component, store storage.Storage, log *logger.Logger) (*audio.Resolver, error) {
	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Audio.DownloadTimeout,
		MaxBodyBytes: cfg.Audio.MaxBytes,
		Headers:      map[string]string{"User-Agent": serviceName + "/" + version.Short()},
	})
	if err != nil {
		return nil, fmt.Errorf("audio client: %w", err)
	}

	var remote *redis.TypedStore[audio.CacheEntry]
	if cache != nil {
		remote = redis.NewTypedStore[audio.CacheEntry](cache.Client(), reusePrefix)
	}
	reuse := audio.NewReuseCache(cfg.Audio.CacheTTL, remote, log)
	source := audio.NewHTTPSource(client, cfg.Audio.MaxBytes)
	return audio.NewResolver(cfg.Audio, lookup, reuse, source, store, log), nil
}
