package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"equiprent/internal/app/commands"
	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/queries"
	availabilitysvc "equiprent/internal/app/services/availability"
	domainavailability "equiprent/internal/domain/availability"
	domainbooking "equiprent/internal/domain/booking"
	domainequipment "equiprent/internal/domain/equipment"
	"equiprent/internal/infra/broker/kafka"
	memorycache "equiprent/internal/infra/cache/memory"
	rediscache "equiprent/internal/infra/cache/redis"
	"equiprent/internal/infra/config"
	mongostore "equiprent/internal/infra/db/mongo"
	"equiprent/internal/infra/db/postgres"
	ginserver "equiprent/internal/infra/http/gin"
	"equiprent/internal/infra/obs"
	"equiprent/internal/infra/security"
	"equiprent/internal/infra/storage/memory"
)

func main() {
	hashToken := flag.String("hash-token", "", "print the bcrypt hash of an admin token and exit")
	flag.Parse()
	if *hashToken != "" {
		hash, err := security.BcryptHasher{}.Hash(*hashToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash token:", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	shutdownTracing, err := obs.SetupTracing(ctx, obs.TracingConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "equiprent",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Checks:  app.checks,
		Timeout: 2 * time.Second,
	}, app.handlers)

	g, gctx := errgroup.WithContext(ctx)
	for _, run := range app.background {
		g.Go(func() error { return run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "cache", cfg.CacheDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", "error", err)
		app.close(logger)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	checks     []obs.Check
	background []func(context.Context) error
	closers    []func() error
	mongo      *mongostore.Client
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}

	bookings, catalog, err := app.openStore(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	cache := app.openCache(cfg)

	svc := &availabilitysvc.Service{
		Bookings:         bookings,
		Equipment:        catalog,
		Cache:            cache,
		Logger:           logger,
		Location:         cfg.Location,
		QueryTimeout:     cfg.QueryTimeout,
		ProbeConcurrency: cfg.ProbeConcurrency,
	}

	instanceID := uuid.NewString()
	source := kafka.DefaultSource + "/" + instanceID
	events := &outbox.Buffer{Encoder: outbox.JSONEventEncoder{}}

	commandRegistry := commands.NewRegistry()
	queryRegistry := queries.NewRegistry()
	availabilityapp.Register(commandRegistry, queryRegistry, svc, events)

	commandBus := middleware.ChainCommands(
		commandRegistry,
		middleware.Tracing(),
		middleware.Logging(logger),
		middleware.Authorization(middleware.AdminOnly{}),
		middleware.Validation(),
		middleware.OutboxFlush(events, logger),
	)
	queryBus := middleware.ChainQueries(
		queryRegistry,
		middleware.QueryTracing(),
		middleware.QueryLogging(logger),
		middleware.QueryValidation(),
	)

	if cfg.KafkaEnabled() {
		if err := app.wireKafka(ctx, cfg, events, commandBus, source, cfg.ConsumerGroup(instanceID), logger); err != nil {
			app.close(logger)
			return nil, err
		}
	} else {
		logger.Info("kafka disabled, cache events stay local")
	}

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: queryBus},
		Admin:        ginserver.AdminHandler{Commands: commandBus, Queries: queryBus, Source: source},
		AdminGuard: ginserver.AdminGuard(security.AdminTokens{
			Hash:   cfg.AdminTokenHash,
			Hasher: security.BcryptHasher{},
		}),
		RateLimit: ginserver.NewRateLimiter(cfg.RateLimitPerMin, logger).Middleware(),
	}
	return app, nil
}

func (a *application) openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (domainbooking.ConflictReader, domainequipment.Catalog, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		a.checks = append(a.checks, obs.Check{Name: "postgres", Probe: postgres.ReadyCheck(pool)})
		return postgres.NewBookingRepository(pool), postgres.NewEquipmentRepository(pool), nil
	case config.StoreMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo: %w", err)
		}
		a.closers = append(a.closers, func() error {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(dctx)
		})
		if err := client.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		a.checks = append(a.checks, obs.Check{Name: "mongo", Probe: client.Ping})
		a.mongo = client
		return mongostore.NewBookingRepository(client.DB), mongostore.NewEquipmentRepository(client.DB), nil
	default:
		catalog := memory.NewEquipmentRepository()
		bookings := memory.NewBookingRepository()
		if err := memory.LoadFixtures(ctx, cfg.FixturesPath, catalog, bookings, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
		return bookings, catalog, nil
	}
}

func (a *application) openCache(cfg config.Config) domainavailability.Cache {
	if cfg.CacheDriver == config.CacheRedis {
		client := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cache := rediscache.NewCache(client, cfg.CacheTTL)
		a.closers = append(a.closers, client.Close)
		a.checks = append(a.checks, obs.Check{Name: "redis", Probe: cache.Ping})
		return cache
	}
	cache := memorycache.NewCache(cfg.CacheTTL, cfg.CacheCapacity)
	a.background = append(a.background, func(ctx context.Context) error {
		err := cache.RunSweeper(ctx, cfg.CacheSweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return cache
}

func (a *application) wireKafka(ctx context.Context, cfg config.Config, events *outbox.Buffer, commandBus commands.Bus, source, group string, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, producer.Close)
	events.Publisher = &kafka.EventPublisher{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix, Source: source}

	handler := &kafka.InvalidationHandler{Commands: commandBus, Source: source, Logger: logger}
	if a.mongo != nil {
		inbox := mongostore.NewInbox(a.mongo.DB, group)
		if err := inbox.EnsureIndexes(ctx); err != nil {
			return err
		}
		handler.Inbox = inbox
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, group, nil, handler, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	a.closers = append(a.closers, consumer.Close)
	topics := kafka.Topics(cfg.KafkaTopicPrefix)
	a.background = append(a.background, func(ctx context.Context) error {
		logger.Info("kafka consumer starting", "topics", topics, "group", group)
		err := consumer.Run(ctx, topics)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return nil
}
