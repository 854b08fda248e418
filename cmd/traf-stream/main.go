package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crazyharmony/traf-exercize/internal/alerter"
	"github.com/crazyharmony/traf-exercize/internal/api"
	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/metrics"
	"github.com/crazyharmony/traf-exercize/internal/model"
	"github.com/crazyharmony/traf-exercize/internal/notification"
	"github.com/crazyharmony/traf-exercize/internal/report"
	"github.com/crazyharmony/traf-exercize/internal/stream"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the config file.")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Warning: %v, using defaults", err)
		cfg = config.Default()
	}

	m := metrics.New()
	m.Register(prometheus.DefaultRegisterer)

	writers := report.BuildWriters(cfg.Analyzer.Writers)

	var al *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" {
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		}
		al = alerter.New(&cfg.Alerter, notifier)
		log.Printf("Alerter enabled with %d rules.", len(cfg.Alerter.Rules))
	}

	agg, err := stream.New(cfg, writers, m, al)
	if err != nil {
		log.Fatalf("Failed to create stream aggregator: %v", err)
	}
	if err := agg.Start(); err != nil {
		log.Fatalf("Failed to start stream aggregator: %v", err)
	}

	apiServer := api.NewServer(cfg.API.ListenAddr, agg.Latest)
	apiServer.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received.")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
	agg.Stop()
	log.Println("Shutdown complete.")
}
