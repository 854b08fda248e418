package stream

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crazyharmony/traf-exercize/internal/alerter"
	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/engine/analyzer"
	"github.com/crazyharmony/traf-exercize/internal/metrics"
	"github.com/crazyharmony/traf-exercize/internal/model"
	"github.com/crazyharmony/traf-exercize/internal/probe"
	"github.com/crazyharmony/traf-exercize/internal/report"
	"github.com/crazyharmony/traf-exercize/pkg/traflog"
)

// Aggregator consumes capture log lines from NATS and feeds them to a single
// analyzer goroutine. Reports are snapshotted periodically and handed to the
// configured writers; the latest snapshot is kept for the HTTP API.
//
// All engine state is owned by the processing goroutine: snapshot generation
// happens on that goroutine between records, so no aggregate mutation is ever
// observed half-applied.
type Aggregator struct {
	analyzer *analyzer.Analyzer
	sub      *probe.Subscriber
	writers  []model.Writer
	metrics  *metrics.Metrics
	alerter  *alerter.Alerter

	records  chan model.RawRecord
	interval time.Duration
	wg       sync.WaitGroup

	// nextIndex is only touched by the NATS delivery goroutine; messages of a
	// single subscription arrive serially.
	nextIndex int

	latest atomic.Pointer[report.Report]
}

// New creates a stream aggregator. writers, m and al may be empty/nil.
func New(cfg *config.Config, writers []model.Writer, m *metrics.Metrics, al *alerter.Alerter) (*Aggregator, error) {
	interval, err := time.ParseDuration(cfg.Stream.SnapshotInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot_interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot_interval must be a positive duration")
	}

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	a := &Aggregator{
		analyzer: analyzer.New(analyzer.Options{
			TopNodes:    cfg.Analyzer.TopNodes,
			TopNetworks: cfg.Analyzer.TopNetworks,
		}),
		sub:      sub,
		writers:  writers,
		metrics:  m,
		alerter:  al,
		records:  make(chan model.RawRecord, cfg.Stream.SizeOfRecordChannel),
		interval: interval,
	}
	a.latest.Store(a.analyzer.Report())
	return a, nil
}

// Start subscribes to the record subject and launches the processing
// goroutine.
func (a *Aggregator) Start() error {
	a.wg.Add(1)
	go a.run()

	if err := a.sub.Start(a.handleLine); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Println("Stream aggregator started.")
	return nil
}

// Stop drains the subscription, closes the record channel once no delivery
// callback can still be sending on it, waits for the buffered records to be
// processed and takes a final snapshot.
func (a *Aggregator) Stop() {
	log.Println("Stream aggregator stopping...")
	if a.sub != nil {
		a.sub.Close()
	}
	close(a.records)
	a.wg.Wait()
	log.Println("Stream aggregator stopped.")
}

// Latest returns the most recent report snapshot.
func (a *Aggregator) Latest() *report.Report {
	return a.latest.Load()
}

// handleLine turns one NATS message into a raw record. Runs on the NATS
// delivery goroutine.
func (a *Aggregator) handleLine(line string) {
	raw := traflog.SplitLine(line, a.nextIndex)
	a.nextIndex++
	if a.metrics != nil {
		a.metrics.RecordsTotal.Inc()
	}
	a.records <- raw
}

// run is the single processing goroutine: records are analyzed one at a time,
// snapshots are taken between records.
func (a *Aggregator) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case raw, ok := <-a.records:
			if !ok {
				a.snapshot()
				return
			}
			a.process(raw)
		case <-ticker.C:
			a.snapshot()
		}
	}
}

func (a *Aggregator) process(raw model.RawRecord) {
	before := a.analyzer.Counts()
	a.analyzer.Process(raw)
	after := a.analyzer.Counts()

	if a.metrics == nil {
		return
	}
	if after.Rejected > before.Rejected {
		a.metrics.ParseErrors.WithLabelValues("structural").Inc()
	}
	if after.MetricInvalid > before.MetricInvalid {
		a.metrics.ParseErrors.WithLabelValues("metric").Inc()
	}
}

// snapshot generates a report, publishes it to the writers, the API cache,
// the metrics gauges and the alerter.
func (a *Aggregator) snapshot() {
	rep := a.analyzer.Report()
	a.latest.Store(rep)

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	for _, writer := range a.writers {
		if err := writer.Write(rep, timestamp); err != nil {
			log.Printf("Error writing report snapshot: %v", err)
		}
	}

	if a.metrics != nil {
		a.metrics.SnapshotsTotal.Inc()
		a.metrics.MutualPairs.Set(float64(len(rep.MutualPairs)))
		a.metrics.ProxyCandidates.Set(float64(len(rep.ProxyCandidates)))
	}
	if a.alerter != nil {
		a.alerter.Evaluate(rep)
	}
}
