// ABOUTME: Server configuration loaded from FUNCDECK_* environment variables.
// ABOUTME: Refuses remote binds unless remote access is enabled and a token is set.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

var (
	ErrRemoteWithoutToken = errors.New(
		"FUNCDECK_ALLOW_REMOTE is true but FUNCDECK_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"FUNCDECK_BIND is a non-loopback address but FUNCDECK_ALLOW_REMOTE is not true; set FUNCDECK_ALLOW_REMOTE=true and FUNCDECK_AUTH_TOKEN to allow remote access",
	)
	ErrBadSnapshotInterval = errors.New("FUNCDECK_SNAPSHOT_EVERY must be a positive integer")
)

// DefaultBind is the loopback address the server listens on by default.
const DefaultBind = "127.0.0.1:7771"

// DefaultSnapshotEvery is how many persisted events pass between snapshots.
const DefaultSnapshotEvery = 50

// FuncdeckConfig holds server configuration loaded from environment variables.
type FuncdeckConfig struct {
	Home          string // Data directory (FUNCDECK_HOME, default: ~/.funcdeck)
	Bind          string // Socket address (FUNCDECK_BIND, default: 127.0.0.1:7771)
	AllowRemote   bool   // Allow non-loopback binds (FUNCDECK_ALLOW_REMOTE, default: false)
	AuthToken     string // Bearer token for API auth (FUNCDECK_AUTH_TOKEN, optional)
	SnapshotEvery int    // Events between snapshots (FUNCDECK_SNAPSHOT_EVERY, default: 50)
}

// ConfigFromEnv loads configuration from FUNCDECK_* environment variables.
func ConfigFromEnv() (*FuncdeckConfig, error) {
	home := os.Getenv("FUNCDECK_HOME")
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.TempDir()
		}
		home = filepath.Join(homeDir, ".funcdeck")
	}

	cfg := &FuncdeckConfig{
		Home:          home,
		Bind:          envOrDefault("FUNCDECK_BIND", DefaultBind),
		AllowRemote:   truthy(os.Getenv("FUNCDECK_ALLOW_REMOTE")),
		AuthToken:     os.Getenv("FUNCDECK_AUTH_TOKEN"),
		SnapshotEvery: DefaultSnapshotEvery,
	}

	if v := os.Getenv("FUNCDECK_SNAPSHOT_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: got %q", ErrBadSnapshotInterval, v)
		}
		cfg.SnapshotEvery = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies the remote access rules. It is rerun after CLI flags
// override the bind address.
func (c *FuncdeckConfig) Validate() error {
	if c.AllowRemote {
		if c.AuthToken == "" {
			return ErrRemoteWithoutToken
		}
		return nil
	}
	if !isLoopback(c.Bind) {
		return fmt.Errorf("%w: FUNCDECK_BIND=%s", ErrNonLoopbackBind, c.Bind)
	}
	return nil
}

// isLoopback accepts 127.0.0.0/8, ::1, and "localhost". An address without
// a host part listens on every interface and is not loopback.
func isLoopback(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func truthy(v string) bool {
	switch v {
	case "true", "1", "yes":
		return true
	}
	return false
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
