package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"keepsake/internal/config"
	"keepsake/internal/db"
	apihttp "keepsake/internal/http"
	"keepsake/internal/letter"
	"keepsake/internal/repository"
	"keepsake/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	messageRepo := repository.NewPgMessageRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)
	roleRepo := repository.NewPgRoleRepository(pool)

	visitTTL := time.Duration(cfg.VisitTTLMinutes) * time.Minute
	loginWindow := time.Duration(cfg.LoginWindowMinutes) * time.Minute
	var (
		sessionStore  service.SessionStore
		sessionEvents service.SessionEvents
		visitStore    service.VisitStore
		loginLimiter  service.LoginLimiter
		redisClient   *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
			sessionEvents = service.NewRedisSessionEvents(redisClient, logger)
			visitStore = service.NewRedisVisitStore(redisClient, visitTTL)
			loginLimiter = service.NewRedisLoginLimiter(redisClient, loginWindow, cfg.LoginMaxAttempts)
		}
		cancel()
	}
	if visitStore == nil {
		visitStore = service.NewMemoryVisitStore(visitTTL)
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginLimiter(loginWindow, cfg.LoginMaxAttempts)
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
	)

	userSvc := service.NewUserService(logger, userRepo, roleRepo)
	authSvc := service.NewAuthService(logger, userSvc, roleRepo, jwtSvc, sessionStore, sessionEvents, loginLimiter)
	gate := service.NewAdminGate(logger, authSvc)
	moderationSvc := service.NewModerationService(logger, messageRepo)
	submissionSvc := service.NewSubmissionService(logger, messageRepo)
	visitSvc := service.NewVisitService(logger, visitStore, letter.New(nil), submissionSvc)

	router := apihttp.NewRouter(
		logger,
		apihttp.NewVisitHandler(logger, visitSvc),
		apihttp.NewAuthHandler(logger, authSvc),
		apihttp.NewAdminHandler(logger, gate, moderationSvc),
		authSvc,
		gate,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
