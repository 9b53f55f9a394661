// loads up the .env files and environment variables used internally by Mechat.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment driven setting of Mechat.
type Config struct {
	Env     string
	Version string

	SrvAddr string
	SrvPort string
	// Origins allowed by CORS and by the socket upgrader.
	ClientURLs []string

	JWTSecret string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPort     string
	RedisPassword string
	RedisDBNumber int
	// Retries of an optimistic update (Redis WATCH, Mongo updatedAt guard).
	TxMaxRetries int

	// Empty disables domain event export.
	NatsURL string

	// Upper bound of a single persistence call triggered by a socket event.
	PersistTimeout time.Duration
	// Outbound queue length of a single socket connection.
	SocketSendBuffer int
}

// Default origins the frontend is served from.
var defaultClientURLs = []string{
	"http://localhost:5173",
	"http://localhost:4173",
}

// uses go package: godotenv to load up enviroment variables from config/<env>.env.
// A missing file is not an error, variables may come from the process environment.
func LoadEnvFile(env string) error {
	if env == "" {
		return nil
	}
	path := fmt.Sprintf("config/%s.env", strings.ToLower(env))
	if _, staterr := os.Stat(path); staterr != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the Mechat configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Env:           getEnv("ENV", "DEV"),
		Version:       getEnv("VERSION", "1.0.0"),
		SrvAddr:       os.Getenv("SRV_ADDR"),
		SrvPort:       getEnv("SRV_PORT", "3000"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       getEnv("MONGO_DB", "meChatDB"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NatsURL:       os.Getenv("NATS_URL"),
	}

	cfg.ClientURLs = append([]string{}, defaultClientURLs...)
	for _, origin := range strings.Split(os.Getenv("CLIENT_URLS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.ClientURLs = append(cfg.ClientURLs, origin)
		}
	}

	var prserr error
	if cfg.RedisDBNumber, prserr = getInt("REDIS_DB_NUMBER", 0); prserr != nil {
		return cfg, prserr
	}
	if cfg.TxMaxRetries, prserr = getInt("TX_MAX_RETRIES", 5); prserr != nil {
		return cfg, prserr
	}
	if cfg.SocketSendBuffer, prserr = getInt("SOCKET_SEND_BUFFER", 256); prserr != nil {
		return cfg, prserr
	}
	cfg.PersistTimeout = 5 * time.Second
	if raw := strings.TrimSpace(os.Getenv("PERSIST_TIMEOUT")); raw != "" {
		if cfg.PersistTimeout, prserr = time.ParseDuration(raw); prserr != nil {
			return cfg, fmt.Errorf("couldn't parse ENV: PERSIST_TIMEOUT: %w", prserr)
		}
	}
	return cfg, nil
}

// Validate reports the settings Mechat cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.TxMaxRetries < 1 {
		missing = append(missing, "TX_MAX_RETRIES")
	}
	if c.SocketSendBuffer < 1 {
		missing = append(missing, "SOCKET_SEND_BUFFER")
	}
	if len(missing) > 0 {
		return errors.New("improper Environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}

// ListenAddr is the address the HTTP server binds to.
func (c Config) ListenAddr() string {
	return c.SrvAddr + ":" + c.SrvPort
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, prserr := strconv.Atoi(raw)
	if prserr != nil {
		// Couldn't convert to int
		return fallback, fmt.Errorf("couldn't parse ENV: %s: %w", key, prserr)
	}
	return v, nil
}
