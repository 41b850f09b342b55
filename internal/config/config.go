package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values. Variables that differ per
// environment (DB credentials, JWT secret) are required; the rest default.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Auth      AuthConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	CORS      CORSConfig
	Log       LogConfig
}

type AppConfig struct {
	Env           string `envconfig:"APP_ENV" default:"dev"`
	Port          string `envconfig:"APP_PORT" default:"8080"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"mysql"`
	// TimeZone is the location reservation timestamps are interpreted in;
	// "Local" uses the host zone.
	TimeZone string `envconfig:"APP_TIMEZONE" default:"Local"`
}

type DBConfig struct {
	User    string `envconfig:"DB_USER"`
	Pass    string `envconfig:"DB_PASS"`
	Host    string `envconfig:"DB_HOST" default:"localhost"`
	Port    string `envconfig:"DB_PORT" default:"3306"`
	Name    string `envconfig:"DB_NAME"`
	Migrate bool   `envconfig:"DB_MIGRATE" default:"true"`
}

type AuthConfig struct {
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin   int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"15"`
	RefreshTTLDays int    `envconfig:"REFRESH_TOKEN_TTL_DAYS" default:"7"`
	BcryptCost     int    `envconfig:"BCRYPT_COST" default:"12"`
}

func (a AuthConfig) AccessTTL() time.Duration { return time.Duration(a.AccessTTLMin) * time.Minute }

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

// AdminConfig seeds an ADMIN account at startup when Email and Password
// are both set. Students register themselves; admins cannot.
type AdminConfig struct {
	Name     string `envconfig:"ADMIN_NAME" default:"Admin"`
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

func (a AdminConfig) Enabled() bool { return a.Email != "" && a.Password != "" }

type RabbitMQConfig struct {
	// URL empty disables event publishing and the audit consumer.
	URL      string `envconfig:"RABBITMQ_URL"`
	Queue    string `envconfig:"RABBITMQ_QUEUE" default:"study-spot.events"`
	AuditLog string `envconfig:"AUDIT_LOG_PATH" default:"logs/events.log"`
}

type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the environment. A missing
// .env is fine; a malformed one is not.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.RateLimit.normalize()
	cfg.Cache.normalize()
	return cfg, nil
}

func (c Config) validate() error {
	switch c.App.StorageDriver {
	case StorageMemory:
	case StorageMySQL:
		if c.DB.User == "" || c.DB.Name == "" {
			return errors.New("missing required env var: DB_USER and DB_NAME are required for the mysql storage driver")
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q (want mysql or memory)", c.App.StorageDriver)
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves APP_TIMEZONE.
func (a AppConfig) Location() (*time.Location, error) {
	if a.TimeZone == "" || a.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", a.TimeZone, err)
	}
	return loc, nil
}
