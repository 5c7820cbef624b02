package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogPort != 10001 || cfg.GatewayPort != 10003 || cfg.LobbyPort != 10002 {
		t.Fatalf("unexpected default ports: %+v", cfg)
	}
	if cfg.GamePortMin != 5000 || cfg.GamePortMax != 5099 {
		t.Fatalf("unexpected default game port range: %+v", cfg)
	}
	if len(cfg.CatalogAddrs) != 1 || cfg.CatalogAddrs[0] != "127.0.0.1:10001" {
		t.Fatalf("unexpected default catalog addrs: %v", cfg.CatalogAddrs)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("CATALOG_PORT", "20001")
	t.Setenv("CATALOG_ADDRS", "10.0.0.1:10001, 10.0.0.2:10001")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogPort != 20001 {
		t.Fatalf("expected overridden catalog port, got %d", cfg.CatalogPort)
	}
	if len(cfg.CatalogAddrs) != 2 {
		t.Fatalf("expected two catalog addrs, got %v", cfg.CatalogAddrs)
	}
	if !cfg.RedisEnabled {
		t.Fatalf("expected redis enabled")
	}
}

func TestLoadRejectsInvalidPortRange(t *testing.T) {
	t.Setenv("GAME_PORT_MIN", "6000")
	t.Setenv("GAME_PORT_MAX", "5000")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for inverted game port range")
	}
}

func TestLoadRejectsBadAuditDBType(t *testing.T) {
	t.Setenv("AUDIT_DB_TYPE", "mongodb")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unsupported audit db type")
	}
}
