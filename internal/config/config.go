// Package config loads server settings from the environment, with an
// optional .env file for local runs. Everything is fixed at startup; nothing
// is renegotiated per connection.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultTickMillis    = 500
	DefaultEncoding      = "json"
	DefaultBroadcastMode = "delta"
	DefaultLogFile       = "walkabout.log"
)

// Config is the full set of process-wide knobs.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// TickInterval is the dissemination period.
	TickInterval time.Duration
	// Encoding names the wire representation: "json" or "binary".
	Encoding string
	// BroadcastMode names what ticks send: "delta" or "full".
	BroadcastMode string
	// LogFile is where the rotating log lands.
	LogFile string
}

// Load reads the environment. A .env file in the working directory is
// honored when present and silently skipped when not.
func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		Addr:          envString("WALKABOUT_ADDR", DefaultAddr),
		TickInterval:  time.Duration(envInt("WALKABOUT_TICK_MS", DefaultTickMillis)) * time.Millisecond,
		Encoding:      envString("WALKABOUT_ENCODING", DefaultEncoding),
		BroadcastMode: envString("WALKABOUT_BROADCAST_MODE", DefaultBroadcastMode),
		LogFile:       envString("WALKABOUT_LOG_FILE", DefaultLogFile),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
