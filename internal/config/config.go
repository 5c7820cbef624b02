// Package config centralizes configuration for the three server
// tiers (Catalog, Gateway, Lobby). It is loaded from a .env file via
// joho/godotenv, then overlaid with process environment variables,
// into one typed Config struct shared by all three cmd/*server
// binaries — each reads only the fields relevant to it.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the platform's server tiers.
type Config struct {
	// Catalog Store
	CatalogHost    string
	CatalogPort    int
	CatalogDataDir string

	// Developer Gateway
	GatewayHost string
	GatewayPort int
	UploadDir   string

	// Lobby / Matchmaker
	LobbyHost      string
	LobbyPort      int
	AdvertiseHost  string
	GamePortMin    int
	GamePortMax    int
	LogsDir        string
	AdminFeedAddr  string // empty disables the admin WebSocket feed

	// Catalog client (used by Gateway and Lobby). May name more than
	// one address; see internal/catalogclient for the routing rule.
	CatalogAddrs []string

	// Audit sink (secondary, non-authoritative log of catalog
	// mutations; see internal/catalogstore/audit.go)
	AuditDBType string // "sqlite" or "postgres"
	AuditDBDSN  string

	// Redis (optional read-through cache + room-event pub/sub)
	RedisEnabled bool
	RedisAddr    string
	RedisDB      int

	ShutdownTimeoutSecs int
}

var defaultConfig = Config{
	CatalogHost:    "127.0.0.1",
	CatalogPort:    10001,
	CatalogDataDir: "db_data",

	GatewayHost: "0.0.0.0",
	GatewayPort: 10003,
	UploadDir:   "uploaded_games",

	LobbyHost:     "0.0.0.0",
	LobbyPort:     10002,
	AdvertiseHost: "localhost",
	GamePortMin:   5000,
	GamePortMax:   5099,
	LogsDir:       "game_server_logs",
	AdminFeedAddr: "",

	CatalogAddrs: []string{"127.0.0.1:10001"},

	AuditDBType: "sqlite",
	AuditDBDSN:  "db_data/audit.db",

	RedisEnabled: false,
	RedisAddr:    "localhost:6379",
	RedisDB:      0,

	ShutdownTimeoutSecs: 10,
}

// Load reads envFile (if present; a missing file is not an error — the
// defaults apply) via godotenv, then applies process environment
// variables on top, and validates the result.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	cfg := defaultConfig
	cfg.CatalogAddrs = append([]string(nil), defaultConfig.CatalogAddrs...)

	applyString(&cfg.CatalogHost, "CATALOG_HOST")
	if err := applyInt(&cfg.CatalogPort, "CATALOG_PORT"); err != nil {
		return nil, err
	}
	applyString(&cfg.CatalogDataDir, "CATALOG_DATA_DIR")

	applyString(&cfg.GatewayHost, "GATEWAY_HOST")
	if err := applyInt(&cfg.GatewayPort, "GATEWAY_PORT"); err != nil {
		return nil, err
	}
	applyString(&cfg.UploadDir, "UPLOAD_DIR")

	applyString(&cfg.LobbyHost, "LOBBY_HOST")
	if err := applyInt(&cfg.LobbyPort, "LOBBY_PORT"); err != nil {
		return nil, err
	}
	applyString(&cfg.AdvertiseHost, "ADVERTISE_HOST")
	if err := applyInt(&cfg.GamePortMin, "GAME_PORT_MIN"); err != nil {
		return nil, err
	}
	if err := applyInt(&cfg.GamePortMax, "GAME_PORT_MAX"); err != nil {
		return nil, err
	}
	applyString(&cfg.LogsDir, "LOGS_DIR")
	applyString(&cfg.AdminFeedAddr, "ADMIN_FEED_ADDR")

	if v := os.Getenv("CATALOG_ADDRS"); v != "" {
		cfg.CatalogAddrs = splitAndTrim(v)
	}

	applyString(&cfg.AuditDBType, "AUDIT_DB_TYPE")
	applyString(&cfg.AuditDBDSN, "AUDIT_DB_DSN")

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisEnabled = v == "true" || v == "1"
	}
	applyString(&cfg.RedisAddr, "REDIS_ADDR")
	if err := applyInt(&cfg.RedisDB, "REDIS_DB"); err != nil {
		return nil, err
	}

	if err := applyInt(&cfg.ShutdownTimeoutSecs, "SHUTDOWN_TIMEOUT_SECS"); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyString(field *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*field = v
	}
}

func applyInt(field *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid integer for %s: %w", key, err)
	}
	*field = n
	return nil
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(cfg *Config) error {
	for name, port := range map[string]int{
		"CATALOG_PORT": cfg.CatalogPort,
		"GATEWAY_PORT": cfg.GatewayPort,
		"LOBBY_PORT":   cfg.LobbyPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535", name)
		}
	}
	if cfg.GamePortMin < 1 || cfg.GamePortMax > 65535 || cfg.GamePortMin > cfg.GamePortMax {
		return fmt.Errorf("invalid game port range [%d, %d]", cfg.GamePortMin, cfg.GamePortMax)
	}
	if cfg.AuditDBType != "sqlite" && cfg.AuditDBType != "postgres" {
		return fmt.Errorf("invalid AUDIT_DB_TYPE: must be 'sqlite' or 'postgres'")
	}
	if len(cfg.CatalogAddrs) == 0 {
		return fmt.Errorf("CATALOG_ADDRS must name at least one address")
	}
	if cfg.ShutdownTimeoutSecs < 1 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECS must be at least 1 second")
	}
	return nil
}

// LogSummary logs the effective configuration, omitting anything
// secret (the audit DSN may carry credentials for postgres).
func (c *Config) LogSummary(component string) {
	log.Printf("=== %s configuration ===", component)
	log.Printf("Catalog:  %s:%d (data dir %s)", c.CatalogHost, c.CatalogPort, c.CatalogDataDir)
	log.Printf("Gateway:  %s:%d (uploads %s)", c.GatewayHost, c.GatewayPort, c.UploadDir)
	log.Printf("Lobby:    %s:%d (advertise %s, ports %d-%d)", c.LobbyHost, c.LobbyPort, c.AdvertiseHost, c.GamePortMin, c.GamePortMax)
	log.Printf("Catalog client addresses: %v", c.CatalogAddrs)
	log.Printf("Audit sink: %s", c.AuditDBType)
	log.Printf("Redis: enabled=%v addr=%s db=%d", c.RedisEnabled, c.RedisAddr, c.RedisDB)
	log.Println("===========================")
}
