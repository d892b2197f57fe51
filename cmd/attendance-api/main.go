package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/attendly/attendance-core/internal/attendance"
	"github.com/attendly/attendance-core/internal/autocheckout"
	"github.com/attendly/attendance-core/internal/cache"
	"github.com/attendly/attendance-core/internal/directory"
	"github.com/attendly/attendance-core/internal/events"
	"github.com/attendly/attendance-core/internal/heartbeat"
	"github.com/attendly/attendance-core/internal/payroll"
	"github.com/attendly/attendance-core/internal/reconciler"
	"github.com/attendly/attendance-core/internal/tenantauth"
	"github.com/attendly/attendance-core/pkg/config"
	"github.com/attendly/attendance-core/pkg/database"
	"github.com/attendly/attendance-core/pkg/httputil"
	"github.com/attendly/attendance-core/pkg/logger"
	"github.com/attendly/attendance-core/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("attendance-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("attendance-api", cfg.Server.Environment)
	log.Info().Msg("starting Attendance API")

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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	defer redisClient.Close()

	// Repositories
	employeeRepo := directory.NewEmployeeRepository(db)
	branchRepo := directory.NewBranchRepository(db)
	shiftRepo := directory.NewShiftRepository(db)
	settingsRepo := directory.NewSettingsRepository(db)
	leaveRepo := directory.NewLeaveRepository(db)
	delayRepo := directory.NewDelayPermissionRepository(db)
	correctionRepo := directory.NewCorrectionRepository(db)

	settingsCache := cache.NewSettingsCache(redisClient, settingsRepo)

	attendanceRepo := attendance.NewRepository(db)
	pendingRepo := autocheckout.NewRepository(db)
	heartbeatRepo := heartbeat.NewRepository(db)

	// Services
	pendingService := autocheckout.NewService(pendingRepo, publisher)
	heartbeatService := heartbeat.NewService(heartbeatRepo)
	attendanceService := attendance.NewService(attendanceRepo, employeeRepo, branchRepo, shiftRepo, settingsRepo, pendingService, heartbeatService, correctionRepo, publisher)
	payrollService := payroll.NewService(employeeRepo, settingsRepo, leaveRepo, delayRepo, attendanceRepo)
	reconcilerService := reconciler.NewService(db, pendingRepo, attendanceRepo, heartbeatRepo, publisher, log, cfg.Reconciler.StaleSessionHours)

	// Gatekeeper (C1)
	tokenManager := tenantauth.NewTokenManager(&cfg.JWT)
	deviceSessions := tenantauth.NewDeviceSessionRepository(db)
	gatekeeper := tenantauth.NewGatekeeper(tokenManager, deviceSessions)

	// Handlers
	attendanceHandler := attendance.NewHandler(attendanceService, log)
	autocheckoutHandler := autocheckout.NewHandler(pendingService, log)
	heartbeatHandler := heartbeat.NewHandler(heartbeatService, log)
	payrollHandler := payroll.NewHandler(payrollService, log)
	reconcilerHandler := reconciler.NewHandler(reconcilerService, log)
	settingsHandler := cache.NewSettingsHandler(settingsCache, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background reconciler ticker, mirroring the compliance checker loop
	// this service's predecessor ran on the same cadence pattern.
	go func() {
		ticker := time.NewTicker(cfg.Reconciler.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := reconcilerService.Run(ctx)
				if err != nil {
					log.Error().Err(err).Msg("periodic reconciler sweep failed")
					continue
				}
				log.Info().
					Int("done", result.Done).
					Int("cancelled", result.Cancelled).
					Int("stale_sessions_closed", result.StaleSessionsClosed).
					Msg("reconciler sweep complete")
			}
		}
	}()

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Device-Id", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "attendance-api",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1/attendance", func(r chi.Router) {
		r.Use(tenantauth.Middleware(gatekeeper))

		r.Route("/employees/{employee_id}", func(r chi.Router) {
			r.Post("/check-in", attendanceHandler.CheckIn)
			r.Post("/check-out", attendanceHandler.CheckOut)
			r.Get("/current", attendanceHandler.Current)
		})

		r.With(tenantauth.RequireAdmin).Post("/logs/{log_id}/correct", attendanceHandler.Correct)

		r.Post("/heartbeat", heartbeatHandler.Record)
		r.Get("/settings", settingsHandler.Get)

		r.Route("/auto-checkout", func(r chi.Router) {
			r.Post("/propose", autocheckoutHandler.Propose)
			r.Get("/{log_id}", autocheckoutHandler.Current)
			r.Post("/{log_id}/cancel", autocheckoutHandler.Cancel)
		})
	})

	r.Route("/api/v1/payroll", func(r chi.Router) {
		r.Use(tenantauth.Middleware(gatekeeper))
		r.Get("/employees/{employee_id}/projection", payrollHandler.Project)
	})

	r.Route("/internal/reconciler", func(r chi.Router) {
		r.Post("/run", reconcilerHandler.Run)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
