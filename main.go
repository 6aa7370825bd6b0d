package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exGeni/free-proxy-telegram-bot/src/api"
	"github.com/exGeni/free-proxy-telegram-bot/src/config"
	"github.com/exGeni/free-proxy-telegram-bot/src/feed"
	"github.com/exGeni/free-proxy-telegram-bot/src/healthcheck"
	"github.com/exGeni/free-proxy-telegram-bot/src/ingest"
	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
	"github.com/exGeni/free-proxy-telegram-bot/src/metrics"
	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
	"github.com/exGeni/free-proxy-telegram-bot/src/rotation"
	"github.com/exGeni/free-proxy-telegram-bot/src/scheduler"
	"github.com/exGeni/free-proxy-telegram-bot/src/sources/alert"
	"github.com/exGeni/free-proxy-telegram-bot/src/window"
)

func main() {
	once := flag.Bool("once", false, "run a single feed refresh and exit")
	flag.Parse()
	os.Exit(run(*once))
}

// run returns the process exit code so deferred cleanup happens first.
func run(once bool) int {
	cfg := config.Load()
	logger.Init(logger.Options{
		Level:       cfg.LogLevel,
		LogglyToken: cfg.LogglyToken,
		Environment: cfg.Environment,
	})
	defer logger.Close()
	l := logger.WithComponent("Main")
	for _, w := range cfg.Warnings {
		l.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statsd := metrics.NewStatsdClient(cfg.StatsdHost, cfg.StatsdPort)
	defer statsd.Close()

	var store pool.Store
	if cfg.MongoURI != "" {
		ms, err := pool.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			l.Error().Err(err).Msg("Cannot connect to mongo.")
			return 1
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Close(closeCtx)
		}()
		store = ms
	} else {
		l.Warn().Msg("MONGO_URI is empty, the pool lives in memory and is lost on restart.")
		store = pool.NewProxyPool()
	}

	ingestor := ingest.NewService(store, feed.NewClient(cfg.FeedURL, cfg.FeedTimeout), cfg.IngestRate, statsd)

	if once {
		if report := ingestor.Run(ctx); report.FetchErr != nil {
			return 1
		}
		return 0
	}

	var windows window.Store
	if cfg.RedisAddr != "" {
		rs, err := window.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			l.Error().Err(err).Msg("Cannot connect to redis.")
			return 1
		}
		defer rs.Close()
		windows = rs
	} else {
		l.Warn().Msg("REDIS_ADDR is empty, requester windows live in memory and are lost on restart.")
		windows = window.NewMemoryStore()
	}

	am := alert.NewPromAlertManager(cfg.AlertManager, cfg.AlertThreshold)
	sched := scheduler.New(ingestor, cfg.RefreshInterval, statsd)
	sched.OnReport = am.ObserveReport
	sched.Start(ctx)

	svc := rotation.NewService(store, pool.NewAllocator(store, cfg.AllowReissue, statsd), window.NewManager(windows))
	server := api.NewServer(svc, store, statsd, api.Options{
		RequesterRate:  cfg.RequesterRate,
		RequesterBurst: cfg.RequesterBurst,
		Checks: []healthcheck.Check{
			{Name: "pool", Target: store},
			{Name: "windows", Target: windows},
		},
	})

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe(cfg.HTTPPort) }()

	select {
	case <-ctx.Done():
		l.Info().Msg("Shutting down...")
	case err := <-errc:
		l.Error().Err(err).Msg("HTTP server stopped.")
	}

	sched.Stop()
	if err := server.Shutdown(); err != nil {
		l.Error().Err(err).Msg("Error on shutdown.")
	}
	return 0
}
