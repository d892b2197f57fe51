package main

import (
	"context"
	"fmt"
	"os"

	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/attendly/attendance-core/internal/events"
	"github.com/attendly/attendance-core/internal/heartbeat"
	"github.com/attendly/attendance-core/internal/reconciler"
	"github.com/attendly/attendance-core/pkg/config"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/messaging"
)

// cmd/reconciler is a standalone entry point for running the reconciler
// sweep out-of-process from cmd/attendance-api (e.g. a scheduled k8s
// CronJob), for deployments that prefer an external scheduler over the
// API server's own ticker.
func main() {
	cfg, err := config.LoadWithValidation("reconciler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("reconciler", cfg.Server.Environment)
	log.Info().Msg("starting reconciler sweep")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	pendingRepo := autocheckout.NewRepository(db)
	attendanceRepo := attendance.NewRepository(db)
	heartbeatRepo := heartbeat.NewRepository(db)

	service := reconciler.NewService(db, pendingRepo, attendanceRepo, heartbeatRepo, publisher, log, cfg.Reconciler.StaleSessionHours)

	result, err := service.Run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("reconciler sweep failed")
	}

	log.Info().
		Int("done", result.Done).
		Int("cancelled", result.Cancelled).
		Int("stale_sessions_closed", result.StaleSessionsClosed).
		Msg("reconciler sweep complete")
}
