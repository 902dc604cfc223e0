package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	dbUserEmptyError = errors.New("DB User is Empty")
	dbNameEmptyError = errors.New("DB Name is Empty")
	envLoadError     = errors.New(".env load Error")
	invalidEnvError  = errors.New("invalid environment value")
)

type AppConfig struct {
	Env            string
	Port           string
	Environment    string
	RequestTimeout time.Duration
	// Путь к YAML/JSON файлу с командами и настройками тикетинга
	ConfigFile string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	Password string
	User     string
	URL      string
}

type AuthConfig struct {
	Disabled      bool
	Token         string
	BasicUsername string
	BasicPassword string
}

type GithubConfig struct {
	Endpoint      string
	WebhookSecret string
	ClientID      string
	RSAPemKeyB64  string
}

type LinearConfig struct {
	Secret string
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Github   GithubConfig
	Linear   LinearConfig
}

func LoadConfig() (*Config, error) {
	// .env необязателен, в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", envLoadError, err)
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("%w: REQUEST_TIMEOUT: %w", invalidEnvError, err)
	}

	c := &Config{
		App: AppConfig{
			Env:            getEnv("APP_ENV", "dev"),
			Port:           getEnv("APP_PORT", "8080"),
			Environment:    getEnv("DEPLOYMENT_ENVIRONMENT", "NO_ENV"),
			RequestTimeout: timeout,
			ConfigFile:     os.Getenv("CONFIG"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			Name:     getEnv("DATABASE_NAME", "postgres"),
			Password: getEnv("DATABASE_PASSWORD", "postgres"),
			User:     getEnv("DATABASE_USER", "postgres"),
			URL:      os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			Disabled:      getBool("EM_METRICS_NO_AUTH"),
			Token:         os.Getenv("EM_METRICS_TOKEN_AUTH"),
			BasicUsername: os.Getenv("EM_METRICS_BASIC_AUTH_USERNAME"),
			BasicPassword: os.Getenv("EM_METRICS_BASIC_AUTH_PASSWORD"),
		},
		Github: GithubConfig{
			Endpoint:      getEnv("GITHUB_ENDPOINT", "https://api.github.com"),
			WebhookSecret: os.Getenv("GITHUB_WEBHOOK_SECRET"),
			ClientID:      os.Getenv("GITHUB_CLIENT_ID"),
			RSAPemKeyB64:  os.Getenv("GITHUB_RSA_PEM_KEY_B64"),
		},
		Linear: LinearConfig{
			Secret: os.Getenv("LINEAR_SECRET"),
		},
	}
	if err := makeDbUrl(c); err != nil {
		return nil, err
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getBool: любое непустое значение, кроме распознаваемого false, включает флаг
func getBool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func makeDbUrl(cfg *Config) error {
	if cfg.Database.URL == "" {
		if cfg.Database.User == "" {
			return dbUserEmptyError
		}
		if cfg.Database.Name == "" {
			return dbNameEmptyError
		}
		cfg.Database.URL = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
		)
	}
	return nil
}
