package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RunMigrations        bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	JWTSecret            string `env:"JWT_SECRET,required"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"10080"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	VisitTTLMinutes      int    `env:"VISIT_TTL_MINUTES" envDefault:"120"`
	LoginMaxAttempts     int    `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindowMinutes   int    `env:"LOGIN_WINDOW_MINUTES" envDefault:"15"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
