// ChatDragon serves intent classification and NPC generation for tabletop
// role-playing games over HTTP, backed by an Azure OpenAI deployment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatdragon/internal/config"
)

func main() {
	configPath := flag.String("config", "chatdragon.toml", "path to the TOML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config file] [serve | review [n]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch flag.Arg(0) {
	case "", "serve":
		serve(cfg)
	case "review":
		if err := runReview(cfg, flag.Arg(1)); err != nil {
			log.Fatalf("Review failed: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func serve(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, cleanup, err := createApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("ChatDragon listening on %s (deployment %s)", cfg.Server.Addr, app.client.Model())
		errCh <- app.server.Start(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
