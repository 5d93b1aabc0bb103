package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"lifeline/internal/asynctask"
	"lifeline/internal/events"
	httptransport "lifeline/internal/http"
	"lifeline/internal/match"
	matchhandler "lifeline/internal/match/handler"
	"lifeline/internal/matcher"
	"lifeline/internal/migrate"
	"lifeline/internal/offer"
	offerhandler "lifeline/internal/offer/handler"
	"lifeline/internal/platform/config"
	"lifeline/internal/platform/httpserver"
	"lifeline/internal/platform/logger"
	"lifeline/internal/platform/metrics"
	"lifeline/internal/platform/redis"
	"lifeline/internal/registry"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	checks := map[string]httptransport.HealthChecker{}

	var matchStore match.Store
	var offerStore offer.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := migrate.Migrate(db); err != nil {
			log.Error("migrations failed", "error", err.Error())
			os.Exit(1)
		}
		matchStore = match.NewPostgres(db)
		offerStore = offer.NewPostgres(db)
		checks["postgres"] = dbChecker{db}
		log.Info("using postgres stores")
	} else {
		memMatches := match.NewInMemoryStore()
		matchStore = memMatches
		offerStore = offer.NewInMemoryStore(memMatches)
		log.Info("using in-memory stores")
	}

	var taskStore asynctask.Store
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		taskStore = asynctask.NewRedisStore(redisClient.Client, cfg.TaskTTL)
		checks["redis"] = redisClient
		log.Info("using redis task store")
	} else {
		taskStore = asynctask.NewInMemoryStore()
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err.Error())
			os.Exit(1)
		}
		publisher = kafka
		log.Info("publishing match events to kafka", "topic", cfg.KafkaTopic)
	} else {
		publisher = events.NewMemoryPublisher()
	}
	defer publisher.Close()

	m := metrics.New()
	registryClient := registry.NewHTTPClient(cfg.DonorRegistryURL, cfg.RecipientRegistryURL, cfg.RegistryTimeout)
	matcherService := matcher.NewService(registryClient, matchStore, offerStore, publisher, m, log)
	taskService := asynctask.NewService(taskStore, cfg.AsyncDelay, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Matches: matchhandler.New(matchStore, offerStore, matcherService, taskService, log, cfg.AdminToken),
		Offers:  offerhandler.New(offerStore, matchStore, log, cfg.AdminToken),
		Logger:  log,
		Checks:  checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting lifeline", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
