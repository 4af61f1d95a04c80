package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"keepsake/internal/config"
	"keepsake/internal/db"
	"keepsake/internal/repository"
	"keepsake/internal/service"
)

const usage = `usage:
  admin_cli create-admin <email> <password>
  admin_cli grant <email> <role>
  admin_cli console`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := logCfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	userRepo := repository.NewPgUserRepository(pool)
	roleRepo := repository.NewPgRoleRepository(pool)
	userSvc := service.NewUserService(logger, userRepo, roleRepo)

	args := os.Args[2:]
	switch os.Args[1] {
	case "create-admin":
		if len(args) != 2 {
			log.Fatal(usage)
		}
		user, err := userSvc.CreateAdmin(ctx, args[0], args[1])
		if err != nil {
			log.Fatal(createAdminFailure(args[0], err))
		}
		fmt.Printf("Admin creado: %s (ID: %s)\n", user.Email, user.ID)
	case "grant":
		if len(args) != 2 {
			log.Fatal(usage)
		}
		if err := userSvc.GrantRole(ctx, args[0], args[1]); err != nil {
			log.Fatalf("grant: %v", err)
		}
		fmt.Printf("Rol %q concedido a %s\n", args[1], args[0])
	case "console":
		c := newConsoleCLI(ctx, cfg, logger, pool, userSvc, roleRepo)
		if err := c.run(); err != nil {
			log.Fatal(err)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

// readLines publica cada linea de stdin; el canal se cierra en EOF.
func readLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// newSessionBackends usa redis si esta configurado, para ver los cierres de
// sesion hechos desde la API; si no, memoria.
func newSessionBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SessionStore, service.SessionEvents) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, using in-memory sessions", zap.Error(err))
		client.Close()
		return nil, nil
	}
	return service.NewRedisSessionStore(client), service.NewRedisSessionEvents(client, logger)
}

// createAdminFailure arma el mensaje de error de create-admin. Si la cuenta
// quedo creada sin rol, indica el comando que completa el alta.
func createAdminFailure(email string, err error) string {
	msg := fmt.Sprintf("create admin: %v", err)
	if errors.Is(err, service.ErrRoleGrantFailed) {
		msg += fmt.Sprintf("\nla cuenta existe; ejecuta: admin_cli grant %s admin", email)
	}
	return msg
}
