// @title storekeep API
// @version 1.0
// @description Multi-tenant inventory with role-based administration, a soft-delete trash bin and database backups.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storekeep/internal/backup"
	"storekeep/internal/config"
	"storekeep/internal/infra"
	"storekeep/internal/monitor"
	"storekeep/internal/router"
	"storekeep/internal/service"
	"storekeep/internal/session"
	"storekeep/internal/storage"
	"storekeep/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	var (
		rdb      *redis.Client
		sessions session.Store
		jobs     worker.JobStore
	)
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		sessions = session.NewRedisStore(rdb)
		jobs = worker.NewRedisJobStore(rdb)
	} else {
		log.Warn().Msg("REDIS_URL empty: sessions and job status are kept in memory")
		sessions = session.NewMemoryStore()
		jobs = worker.NewMemoryJobStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backup pipeline: pg_dump/psql tool, job dispatcher, optional completion mail.
	tool := backup.NewPgTool(cfg.BackupDir, cfg.DatabaseURL, cfg.BinPaths(), db)
	mailer := infra.NewMailer(cfg)
	notifier := worker.NewEmailWorker(mailer, infra.NewCircuitBreaker(infra.CircuitBreakerConfig{}), cfg.NotifyEmail)
	dispatcher := worker.NewDispatcher(rdb, jobs, tool, notifier)
	worker.StartWorkerPool(ctx, dispatcher, cfg.WorkerPoolSize)
	worker.StartBackupCron(ctx, dispatcher, time.Duration(cfg.BackupIntervalHours)*time.Hour)

	deps := router.Deps{
		DB:       db,
		Redis:    rdb,
		Sessions: session.NewManager(sessions, cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour),
		Files:    storage.NewDiskStore(cfg.PublicDir),
		Backups:  tool,
		Jobs:     dispatcher,
		Monitor:  monitor.New("storekeep"),
		Hasher:   service.NewBcryptHasher(cfg.BcryptCost),
	}
	svcs := router.NewServices(deps)

	if cfg.SuperAdminPassword == "" {
		log.Warn().Msg("BOOTSTRAP_SUPERADMIN_PASSWORD empty: skipping super admin bootstrap")
	} else if created, err := svcs.Accounts.EnsureSuperAdmin(ctx, cfg.SuperAdminUsername, cfg.SuperAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap super admin")
	} else if created {
		log.Info().Str("username", cfg.SuperAdminUsername).Msg("super admin created")
	}

	r := router.New(ctx, cfg, deps, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("storekeep listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	cancel()
	dispatcher.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
