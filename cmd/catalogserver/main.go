package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamelobby/internal/catalogstore"
	"gamelobby/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "path to environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.LogSummary("Catalog Store")

	store, err := catalogstore.Open(cfg.CatalogDataDir)
	if err != nil {
		log.Fatalf("Failed to open catalog store: %v", err)
	}

	if cfg.AuditDBDSN != "" {
		sink, err := catalogstore.OpenAuditSink(cfg.AuditDBType, cfg.AuditDBDSN)
		if err != nil {
			log.Fatalf("Failed to open audit sink: %v", err)
		}
		store.AuditSink = sink
		defer sink.Close()
	}

	addr := fmt.Sprintf("%s:%d", cfg.CatalogHost, cfg.CatalogPort)
	srv, err := catalogstore.NewServer(store, addr)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", addr, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog Store listening on %s", srv.Addr())
		log.Println("Press Ctrl+C to shutdown")
		if err := srv.Serve(); err != nil {
			log.Fatalf("Catalog Store error: %v", err)
		}
	}()

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	performShutdown(srv, cfg)
}

func performShutdown(srv *catalogstore.Server, cfg *config.Config) {
	log.Println("Catalog Store shutting down...")
	log.Println("[1/2] Stopping new connections...")
	srv.Close()

	log.Println("[2/2] Waiting for in-flight requests to drain...")
	time.Sleep(time.Duration(cfg.ShutdownTimeoutSecs) * time.Second / 4)

	log.Println("Catalog Store offline.")
}
