package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamelobby/internal/catalogclient"
	"gamelobby/internal/config"
	"gamelobby/internal/lobby"
	"gamelobby/internal/lobby/adminfeed"
	"gamelobby/internal/rediscache"
)

func main() {
	envFile := flag.String("env", ".env", "path to environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.LogSummary("Lobby")

	catalog, err := catalogclient.New(cfg.CatalogAddrs)
	if err != nil {
		log.Fatalf("Failed to construct catalog client: %v", err)
	}

	var cache *rediscache.Cache
	if cfg.RedisEnabled {
		cache = rediscache.New(cfg.RedisAddr, cfg.RedisDB)
		defer cache.Close()
	}

	var hub *adminfeed.Hub
	var adminHTTP *http.Server
	if cfg.AdminFeedAddr != "" {
		hub = adminfeed.NewHub()
		go hub.Run()

		mux := http.NewServeMux()
		mux.HandleFunc("/admin/ws", hub.ServeWS)
		adminHTTP = &http.Server{Addr: cfg.AdminFeedAddr, Handler: mux}
		go func() {
			log.Printf("Admin feed listening on %s/admin/ws", cfg.AdminFeedAddr)
			if err := adminHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Admin feed error: %v", err)
			}
		}()
	}

	manager := lobby.NewManager(catalog, cfg.LogsDir, cfg.AdvertiseHost, cfg.GamePortMin, cfg.GamePortMax)

	addr := fmt.Sprintf("%s:%d", cfg.LobbyHost, cfg.LobbyPort)
	srv, err := lobby.NewServer(catalog, manager, addr, cache, hub)
	if err != nil {
		log.Fatalf("Failed to bind %s: %v", addr, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Lobby listening on %s", srv.Addr())
		log.Println("Press Ctrl+C to shutdown")
		if err := srv.Serve(); err != nil {
			log.Fatalf("Lobby error: %v", err)
		}
	}()

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	performShutdown(srv, hub, adminHTTP, cfg)
}

func performShutdown(srv *lobby.Server, hub *adminfeed.Hub, adminHTTP *http.Server, cfg *config.Config) {
	log.Println("Lobby shutting down...")

	log.Println("[1/3] Stopping new connections...")
	srv.Close()

	log.Println("[2/3] Closing admin feed...")
	if hub != nil {
		hub.Shutdown()
	}
	if adminHTTP != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSecs)*time.Second)
		defer cancel()
		adminHTTP.Shutdown(ctx)
	}

	log.Println("[3/3] Waiting for active rooms to drain...")
	time.Sleep(time.Duration(cfg.ShutdownTimeoutSecs) * time.Second / 4)

	log.Println("Lobby offline.")
}
