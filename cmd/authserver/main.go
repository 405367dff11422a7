// Command authserver runs the HTTP auth API over the built-in JSON file user
// store, with redis-backed lockout accounting.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"

	"github.com/webqx-health/authkit"
	"github.com/webqx-health/authkit/httpapi"
	"github.com/webqx-health/authkit/internal/stores"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type httpConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type jwtConfig struct {
	Secret            string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer            string        `yaml:"issuer" env-default:"webqx-auth"`
	AccessTTL         time.Duration `yaml:"access_ttl" env-default:"1h"`
	RememberAccessTTL time.Duration `yaml:"remember_access_ttl" env-default:"168h"`
	RefreshTTL        time.Duration `yaml:"refresh_ttl" env-default:"168h"`
	LongRefreshTTL    time.Duration `yaml:"long_refresh_ttl" env-default:"720h"`
	Leeway            time.Duration `yaml:"leeway" env-default:"30s"`
}

type lockoutConfig struct {
	Enabled   bool          `yaml:"enabled" env-default:"true"`
	Threshold int           `yaml:"threshold" env-default:"5"`
	Window    time.Duration `yaml:"window" env-default:"15m"`
}

type redisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type seedConfig struct {
	Email    string `yaml:"email" env:"SEED_EMAIL"`
	Password string `yaml:"password" env:"SEED_PASSWORD"`
	UserType string `yaml:"user_type" env-default:"admin"`
}

type config struct {
	Env       string        `yaml:"env" env:"ENV" env-default:"local"`
	UsersFile string        `yaml:"users_file" env-default:"users.json"`
	AuditLog  string        `yaml:"audit_log"`
	HTTP      httpConfig    `yaml:"http"`
	JWT       jwtConfig     `yaml:"jwt"`
	Lockout   lockoutConfig `yaml:"lockout"`
	Redis     redisConfig   `yaml:"redis"`
	Seed      seedConfig    `yaml:"seed"`
}

func loadConfig() (*config, error) {
	path := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	var cfg config
	if *path != "" {
		if err := cleanenv.ReadConfig(*path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting authserver", slog.String("env", cfg.Env), slog.String("address", cfg.HTTP.Address))

	if err := run(cfg, log); err != nil {
		log.Error("authserver failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, err := stores.OpenUserStore(cfg.UsersFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := users.Close(); err != nil {
			log.Error("user store close failed", slog.String("error", err.Error()))
		}
	}()
	log.Info("user store loaded", slog.Int("users", users.Len()))

	engineCfg := authkit.DefaultConfig()
	engineCfg.JWT.Secret = []byte(cfg.JWT.Secret)
	engineCfg.JWT.Issuer = cfg.JWT.Issuer
	engineCfg.JWT.AccessTTL = cfg.JWT.AccessTTL
	engineCfg.JWT.RememberAccessTTL = cfg.JWT.RememberAccessTTL
	engineCfg.JWT.RefreshTTL = cfg.JWT.RefreshTTL
	engineCfg.JWT.LongRefreshTTL = cfg.JWT.LongRefreshTTL
	engineCfg.JWT.Leeway = cfg.JWT.Leeway
	engineCfg.Lockout.Enabled = cfg.Lockout.Enabled
	engineCfg.Lockout.Threshold = cfg.Lockout.Threshold
	engineCfg.Lockout.Window = cfg.Lockout.Window

	builder := authkit.New().
		WithConfig(engineCfg).
		WithUserProvider(users).
		WithLogger(log)

	if cfg.Lockout.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		builder = builder.WithRedis(rdb)
	}

	if cfg.AuditLog != "" {
		f, err := os.OpenFile(cfg.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		builder = builder.WithAuditSink(authkit.NewJSONWriterSink(f))
	}

	engine, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Seed a first account on an empty store so a fresh deployment is usable.
	if users.Len() == 0 && cfg.Seed.Email != "" && cfg.Seed.Password != "" {
		hash, err := engine.HashPassword(cfg.Seed.Password)
		if err != nil {
			return err
		}
		rec, err := users.Put(authkit.UserRecord{
			Email:        cfg.Seed.Email,
			PasswordHash: hash,
			UserType:     cfg.Seed.UserType,
			Active:       true,
		})
		if err != nil {
			return err
		}
		log.Info("seeded initial user", slog.String("email", rec.Email), slog.String("id", rec.UserID))
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      httpapi.NewServer(engine, log).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
