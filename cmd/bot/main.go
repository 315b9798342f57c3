package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/broker/angel"
	"intrabot/internal/broker/paper"
	"intrabot/internal/config"
	"intrabot/internal/engine"
	"intrabot/internal/ledger"
	"intrabot/internal/logger"
	"intrabot/internal/market"
	"intrabot/internal/notifier"
	"intrabot/internal/store/gormstore"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.Info("Bot starting.")

	var client broker.Broker
	if cfg.Runtime.DryRun {
		client = paper.New(log)
	} else {
		client = angel.New(cfg.Broker.BaseURL, cfg.Broker.WSUrl, cfg.Broker.ApiKey, cfg.Broker.Secret, log)
	}

	st, err := gormstore.New(cfg.Store.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store.")
	}
	defer st.Close()

	candles := market.NewBuilder(cfg.Engine.CandleHistoryCap)
	mkt := market.NewManager(client, candles, log)
	ldg := ledger.NewService(st, cfg.Risk.MinBalanceThreshold, log)
	alerts := notifier.NewTelegram(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID)
	exec := engine.NewExecutor(client, st, alerts, engine.RetryPolicy{
		Attempts: cfg.Engine.RetryAttempts,
		Delay:    retryDelay(cfg),
	}, log)

	eng := engine.New(cfg, client, mkt, st, ldg, exec, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := eng.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Fatal("Engine stopped with error.")
		}
	}()
	<-sigCh

	cancel()
	log.Info("Bot stopped.")
}

func retryDelay(cfg *config.Config) time.Duration {
	if cfg.Engine.RetryDelayMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(cfg.Engine.RetryDelayMs) * time.Millisecond
}
