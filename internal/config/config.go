package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	FrontendURL string

	JWTSecret string
	JWTTTL    time.Duration

	// AdminBootstrapSecret enables POST /auth/bootstrap-admin when non-empty.
	AdminBootstrapSecret string

	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	MongoURI      string
	MongoDatabase string

	RedisAddr          string
	RateLimitPerMinute int
}

// Load reads configuration from an optional .env file, an optional config
// file and the process environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		Env:                  strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		FrontendURL:          v.GetString("FRONTEND_URL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTTTL:               v.GetDuration("JWT_TTL"),
		AdminBootstrapSecret: v.GetString("ADMIN_BOOTSTRAP_SECRET"),
		DBDriver:             strings.ToLower(v.GetString("DB_DRIVER")),
		DBUser:               v.GetString("DB_USER"),
		DBPassword:           v.GetString("DB_PASSWORD"),
		DBHost:               v.GetString("DB_HOST"),
		DBPort:               v.GetString("DB_PORT"),
		DBName:               v.GetString("DB_NAME"),
		MongoURI:             v.GetString("MONGODB_URI"),
		MongoDatabase:        v.GetString("MONGODB_DATABASE"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RateLimitPerMinute:   v.GetInt("RATE_LIMIT_PER_MINUTE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 72*time.Hour)
	v.SetDefault("ADMIN_BOOTSTRAP_SECRET", "")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "gighub")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "gighub")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMongoDB, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.JWTSecret == "" {
		if c.IsProd() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret"
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == "production" || c.Env == "prod"
}

// PostgresDSN builds the connection string from the individual DB_* settings.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	return u.String()
}
