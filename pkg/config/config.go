package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Scanner    ScannerConfig
	Scheduler  SchedulerConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ScannerConfig controls the certificate probe and batch pool.
type ScannerConfig struct {
	TimeoutSeconds  int // connect+handshake timeout per target
	WatchdogSeconds int // extra slack before a hung connection is force-closed
	Concurrency     int // max targets probed at once
	WarningDays     int // daysRemaining threshold for the warning status
}

type SchedulerConfig struct {
	Enabled bool
}

type AuthConfig struct {
	APIKey string
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// Validate rejects values the scanner and server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scanner.TimeoutSeconds < 1 {
		return fmt.Errorf("scanner timeout must be at least 1s, got %d", c.Scanner.TimeoutSeconds)
	}
	if c.Scanner.WatchdogSeconds < 1 {
		return fmt.Errorf("scanner watchdog slack must be at least 1s, got %d", c.Scanner.WatchdogSeconds)
	}
	if c.Scanner.Concurrency < 1 {
		return fmt.Errorf("scanner concurrency must be at least 1, got %d", c.Scanner.Concurrency)
	}
	if c.Scanner.WarningDays < 0 {
		return fmt.Errorf("scanner warning window cannot be negative, got %d", c.Scanner.WarningDays)
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "certscope")
	v.SetDefault("DATABASE_PASSWORD", "certscope_secret")
	v.SetDefault("DATABASE_NAME", "certscope")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("SCANNER_TIMEOUT_SECONDS", 10)
	v.SetDefault("SCANNER_WATCHDOG_SECONDS", 5)
	v.SetDefault("SCANNER_CONCURRENCY", 10)
	v.SetDefault("SCANNER_WARNING_DAYS", 30)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("API_KEY", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Scanner: ScannerConfig{
			TimeoutSeconds:  v.GetInt("SCANNER_TIMEOUT_SECONDS"),
			WatchdogSeconds: v.GetInt("SCANNER_WATCHDOG_SECONDS"),
			Concurrency:     v.GetInt("SCANNER_CONCURRENCY"),
			WarningDays:     v.GetInt("SCANNER_WARNING_DAYS"),
		},
		Scheduler: SchedulerConfig{
			Enabled: v.GetBool("SCHEDULER_ENABLED"),
		},
		Auth: AuthConfig{
			APIKey: v.GetString("API_KEY"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
