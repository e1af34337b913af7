package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/talkai/tickerbot/internal/api"
	"github.com/talkai/tickerbot/internal/bot"
	"github.com/talkai/tickerbot/internal/config"
	"github.com/talkai/tickerbot/internal/database"
	"github.com/talkai/tickerbot/internal/kafka"
	"github.com/talkai/tickerbot/internal/ledger"
	"github.com/talkai/tickerbot/internal/market"
	"github.com/talkai/tickerbot/internal/valuation"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("host", cfg.Database.Host).Msg("connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	// Price sources: stooq first, yahoo as fallback, redis cache in front
	stooq := market.NewStooqClient(cfg.Market.StooqBaseURL, cfg.Market.Timeout, log)
	yahoo := market.NewYahooClient(cfg.Market.YahooBaseURL, cfg.Market.Timeout, log)
	oracle := market.NewCachedOracle(
		market.NewFallback(stooq, yahoo, log),
		rdb, cfg.Redis.QuoteTTL, cfg.Redis.HistoricalTTL, log,
	)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	applier := ledger.NewApplier(db, oracle, producer, log)
	engine := valuation.NewEngine(db, oracle, log)
	b := bot.New(db, applier, engine, oracle, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, db, log)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("consumer stopped")
		}
	}()

	handler := api.NewHandler(db, applier, engine, b, log)
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(server, cancel, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully drains the server
func waitForShutdown(server *http.Server, cancel context.CancelFunc, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}
