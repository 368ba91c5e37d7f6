package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SHOOTER_"

// Config holds the server settings. Values come from defaults, then the
// .env file and process environment, then command-line flags.
type Config struct {
	Addr         string
	ClientDir    string
	MapFile      string
	TickInterval time.Duration
	SendQueue    int
	Seed         uint64

	DBPath   string // empty disables the analytics event log
	LogLevel string
	LogFile  string

	PublicURL     string // advertised join URL for /qr
	AdminUser     string
	AdminPassHash string // bcrypt hash; empty disables /admin
	JWTSecret     string
}

// DefaultConfig returns the settings of the reference deployment
func DefaultConfig() Config {
	return Config{
		Addr:         ":3000",
		ClientDir:    "public",
		TickInterval: 15 * time.Millisecond,
		SendQueue:    sendBufSize,
		LogLevel:     "info",
		AdminUser:    "admin",
	}
}

// LoadConfig reads envFile (if it exists) into the environment and applies
// every SHOOTER_* variable on top of the defaults.
func LoadConfig(envFile string) (Config, error) {
	cfg := DefaultConfig()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("CLIENT_DIR", &c.ClientDir)
	str("MAP_FILE", &c.MapFile)
	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("PUBLIC_URL", &c.PublicURL)
	str("ADMIN_USER", &c.AdminUser)
	str("ADMIN_PASS_HASH", &c.AdminPassHash)
	str("JWT_SECRET", &c.JWTSecret)

	if v, ok := os.LookupEnv(envPrefix + "TICK"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTICK: %w", envPrefix, err)
		}
		c.TickInterval = d
	}
	if v, ok := os.LookupEnv(envPrefix + "SEND_QUEUE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSEND_QUEUE: %w", envPrefix, err)
		}
		c.SendQueue = n
	}
	if v, ok := os.LookupEnv(envPrefix + "SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		c.Seed = n
	}
	return nil
}

// BindFlags registers command-line overrides, using the current values as defaults
func (c *Config) BindFlags(set *flag.FlagSet) {
	set.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	set.StringVar(&c.ClientDir, "client", c.ClientDir, "directory of static client files")
	set.StringVar(&c.MapFile, "map", c.MapFile, "Tiled JSON map (empty: built-in arena)")
	set.DurationVar(&c.TickInterval, "tick", c.TickInterval, "simulation tick interval")
	set.IntVar(&c.SendQueue, "send-queue", c.SendQueue, "outbound frames buffered per session")
	set.Uint64Var(&c.Seed, "seed", c.Seed, "random seed (0: time based)")
	set.StringVar(&c.DBPath, "db", c.DBPath, "SQLite analytics database (empty: disabled)")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	set.StringVar(&c.LogFile, "log-file", c.LogFile, "rolling log file (empty: stderr only)")
	set.StringVar(&c.PublicURL, "public-url", c.PublicURL, "join URL encoded by /qr")
}

// Validate checks the settings the server cannot run without
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: empty listen address")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	}
	if c.SendQueue < 1 {
		return fmt.Errorf("config: send queue must be at least 1, got %d", c.SendQueue)
	}
	if c.AdminPassHash != "" && c.JWTSecret == "" {
		return errors.New("config: admin login needs a JWT secret")
	}
	return nil
}
