package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/probe"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the config file.")
	inputPath := flag.String("file", "", "Capture log to publish (defaults to the configured input path).")
	interval := flag.Duration("interval", 0, "Optional delay between records, to replay the log at a live pace.")
	flag.Parse()

	// Credentials and endpoint overrides may live in a local .env file.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Warning: %v, using defaults", err)
		cfg = config.Default()
	}
	path := cfg.Analyzer.InputPath
	if *inputPath != "" {
		path = *inputPath
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open capture log: %v", err)
	}
	defer file.Close()

	log.Printf("Publishing records from '%s' to subject '%s'...", path, cfg.Probe.Subject)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	published := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := pub.Publish(line); err != nil {
			log.Printf("Failed to publish record: %v", err)
			continue
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d records published...", published)
		}
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed while reading capture log: %v", err)
	}

	log.Printf("Done. %d records published.", published)
}
