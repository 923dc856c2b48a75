package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr  string
	HTTPAPIAddr string

	RedisURL    string
	DatabaseURL string

	AllowedOrigins []string

	MaxConcurrentRooms int

	MessageCatalogPath string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":5000",
		MaxConcurrentRooms: 500,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.HTTPAPIAddr = strings.TrimSpace(os.Getenv("HTTP_API_ADDR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_ROOMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentRooms = n
		}
	}

	cfg.MessageCatalogPath = strings.TrimSpace(os.Getenv("MESSAGE_CATALOG"))

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}

	return cfg, nil
}
