// Command worker consumes reservation.created events and appends one line
// per reservation to the reservation log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New("theatre-worker", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := queue.NewReservationLog(cfg.ReservationLog)
	log.Info("worker started", zap.String("backend", cfg.EventsBackend), zap.String("log", cfg.ReservationLog))

	switch cfg.EventsBackend {
	case "rabbitmq":
		return queue.ConsumeRabbit(ctx, cfg.RabbitURL, cfg.RabbitQueue, sink, log)
	case "nats":
		nc, err := queue.ConnectNATS(cfg.NATSURL, "theatre-worker", log)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
		return queue.ConsumeNATS(ctx, nc, cfg.NATSSubject, sink, log)
	default:
		return fmt.Errorf("EVENTS_BACKEND=%q has nothing to consume", cfg.EventsBackend)
	}
}
