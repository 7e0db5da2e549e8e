// internal/config/config.go
//
// Process configuration read from the environment.
// main loads .env (godotenv) before calling Load, so values may come from
// either. Unset variables fall back to defaults; malformed ones fail fast.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Player count bounds.
const (
	MinPlayers = 2
	MaxPlayers = 4
)

// Config is the resolved server configuration.
type Config struct {
	GameAddr  string // TCP address for game clients
	Players   int    // seats to fill before the game starts
	AdminAddr string // admin HTTP address; "" disables the admin API

	DBPath          string // SQLite file; "" keeps results in memory
	ResultCacheSize int

	LogLevel  string
	LogFormat string // "json" or "console"

	JWTSecret         string
	JWTExpires        time.Duration
	AdminUser         string
	AdminPasswordHash string // bcrypt; "" disables login

	ReadPoll     time.Duration
	DrainTimeout time.Duration
	QueueSize    int
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	c := &Config{
		GameAddr:          getEnv("GAME_ADDR", ":12345"),
		AdminAddr:         os.Getenv("ADMIN_ADDR"),
		DBPath:            os.Getenv("DB_PATH"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		JWTSecret:         getEnv("JWT_SECRET", "dev_secret_change_me"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
	}
	if _, set := os.LookupEnv("ADMIN_ADDR"); !set {
		c.AdminAddr = ":5175"
	}

	var err error
	if c.Players, err = envInt("PLAYERS", 2); err != nil {
		return nil, err
	}
	if c.Players < MinPlayers || c.Players > MaxPlayers {
		return nil, fmt.Errorf("%w: PLAYERS=%d (want %d..%d)", ErrInvalid, c.Players, MinPlayers, MaxPlayers)
	}
	if c.ResultCacheSize, err = envInt("RESULT_CACHE_SIZE", 128); err != nil {
		return nil, err
	}
	if c.QueueSize, err = envInt("QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	if c.QueueSize < 1 {
		return nil, fmt.Errorf("%w: QUEUE_SIZE=%d", ErrInvalid, c.QueueSize)
	}

	hours, err := envInt("JWT_EXPIRES_HOURS", 12)
	if err != nil {
		return nil, err
	}
	if hours < 1 {
		return nil, fmt.Errorf("%w: JWT_EXPIRES_HOURS=%d", ErrInvalid, hours)
	}
	c.JWTExpires = time.Duration(hours) * time.Hour

	pollMS, err := envInt("READ_POLL_MS", 100)
	if err != nil {
		return nil, err
	}
	drainMS, err := envInt("DRAIN_TIMEOUT_MS", 2000)
	if err != nil {
		return nil, err
	}
	if pollMS < 1 || drainMS < 1 {
		return nil, fmt.Errorf("%w: READ_POLL_MS=%d DRAIN_TIMEOUT_MS=%d", ErrInvalid, pollMS, drainMS)
	}
	c.ReadPoll = time.Duration(pollMS) * time.Millisecond
	c.DrainTimeout = time.Duration(drainMS) * time.Millisecond

	switch c.LogFormat {
	case "json", "console":
	default:
		return nil, fmt.Errorf("%w: LOG_FORMAT=%q", ErrInvalid, c.LogFormat)
	}
	return c, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, k, v, err)
	}
	return n, nil
}
