package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/config"
	"gamelobby/internal/gateway"
	"gamelobby/internal/rediscache"
)

func main() {
	envFile := flag.String("env", ".env", "path to environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.LogSummary("Developer Gateway")

	catalog, err := catalogclient.New(cfg.CatalogAddrs)
	if err != nil {
		log.Fatalf("Failed to construct catalog client: %v", err)
	}

	var cache *rediscache.Cache
	if cfg.RedisEnabled {
		cache = rediscache.New(cfg.RedisAddr, cfg.RedisDB)
		defer cache.Close()
	}

	addr := fmt.Sprintf("%s:%d", cfg.GatewayHost, cfg.GatewayPort)
	srv, err := gateway.NewServer(catalog, cfg.UploadDir, addr, cache)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", addr, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Developer Gateway listening on %s", srv.Addr())
		log.Println("Press Ctrl+C to shutdown")
		if err := srv.Serve(); err != nil {
			log.Fatalf("Developer Gateway error: %v", err)
		}
	}()

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	performShutdown(srv, cfg)
}

func performShutdown(srv *gateway.Server, cfg *config.Config) {
	log.Println("Developer Gateway shutting down...")
	log.Println("[1/2] Stopping new connections...")
	srv.Close()

	log.Println("[2/2] Waiting for in-flight uploads to drain...")
	time.Sleep(time.Duration(cfg.ShutdownTimeoutSecs) * time.Second / 4)

	log.Println("Developer Gateway offline.")
}
