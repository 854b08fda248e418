package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/engine/analyzer"
	"github.com/crazyharmony/traf-exercize/internal/model"
	"github.com/crazyharmony/traf-exercize/internal/report"
	"github.com/crazyharmony/traf-exercize/pkg/traflog"
)

const defaultConfigPath = "configs/config.yaml"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: traf-analyzer [input-file]

Analyzes a ';'-delimited traffic capture log and prints a network-behavior
report: unique endpoint counts, throughput, peak speed, per-node and
per-subnet rankings, and mutual-transfer/proxy detection.

The input file defaults to traf.txt. Report destinations are configured in
%s (console output by default).
`, defaultConfigPath)
}

func main() {
	// Help must exit 0, so the args are handled before any flag machinery.
	for _, arg := range os.Args[1:] {
		if arg == "-h" || arg == "--help" || arg == "-help" {
			usage()
			os.Exit(0)
		}
	}

	cfg, err := config.LoadConfig(defaultConfigPath)
	if err != nil {
		cfg = config.Default()
	}

	inputPath := cfg.Analyzer.InputPath
	if len(os.Args) > 1 {
		inputPath = os.Args[1]
	}

	a := analyzer.New(analyzer.Options{
		TopNodes:    cfg.Analyzer.TopNodes,
		TopNetworks: cfg.Analyzer.TopNetworks,
	})

	// An unreadable input is not fatal: the report is emitted over whatever
	// state was accumulated (an empty one), and the exit code stays 0.
	reader, err := traflog.NewReader(inputPath)
	if err != nil {
		log.Printf("Warning: %v, emitting report over empty state", err)
	} else {
		records := make(chan model.RawRecord, 1024)
		go func() {
			defer close(records)
			if err := reader.ReadRecords(records); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
		a.Run(records)
		reader.Close()
	}

	rep := a.Report()
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	for _, writer := range report.BuildWriters(cfg.Analyzer.Writers) {
		if err := writer.Write(rep, timestamp); err != nil {
			log.Printf("Error writing report: %v", err)
		}
	}
}
