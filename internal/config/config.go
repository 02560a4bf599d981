package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port  string `env:"PORT" envDefault:"4000"`
	DBDSN string `env:"DB_DSN,required"`

	JWT   JWTConfig
	Mpesa MpesaConfig
	SMTP  SMTPConfig

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

type JWTConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	ResetSecret   string        `env:"JWT_RESET_SECRET"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	ResetTTL      time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`
}

type MpesaConfig struct {
	Env            string `env:"MPESA_ENV" envDefault:"sandbox"`
	ConsumerKey    string `env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string `env:"MPESA_CONSUMER_SECRET"`
	ShortCode      string `env:"MPESA_SHORT_CODE"`
	Passkey        string `env:"MPESA_PASSKEY"`
	CallbackURL    string `env:"MPESA_CALLBACK_URL"`
}

// Configured reports whether the full Daraja credential set is present.
// Without it the gateway runs in simulated mode.
func (c MpesaConfig) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.ShortCode != "" && c.Passkey != ""
}

type SMTPConfig struct {
	Host          string `env:"SMTP_HOST"`
	Port          string `env:"SMTP_PORT" envDefault:"1025"`
	User          string `env:"SMTP_USER"`
	Pass          string `env:"SMTP_PASS"`
	TLSMode       string `env:"SMTP_TLS_MODE" envDefault:"none"` // none|starttls|tls
	SkipVerifyTLS bool   `env:"SMTP_SKIP_VERIFY_TLS"`
	FromAddr      string `env:"EMAIL_FROM" envDefault:"no-reply@event-api.local"`
	FromName      string `env:"EMAIL_FROM_NAME" envDefault:"Event API"`
}

// Load reads .env (if present) and parses the environment into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
