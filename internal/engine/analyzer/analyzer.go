package analyzer

import (
	"context"
	"errors"
	"log"

	"github.com/crazyharmony/traf-exercize/internal/engine/aggregate"
	"github.com/crazyharmony/traf-exercize/internal/engine/mutual"
	"github.com/crazyharmony/traf-exercize/internal/engine/normalize"
	"github.com/crazyharmony/traf-exercize/internal/model"
	"github.com/crazyharmony/traf-exercize/internal/report"
)

// Options controls report derivation.
type Options struct {
	TopNodes    int
	TopNetworks int
}

// Counts are the pipeline's record counters.
type Counts struct {
	Processed     int // records that entered the aggregates
	Rejected      int // records dropped for structural errors
	MetricInvalid int // processed records with invalid metrics
}

// Analyzer drives the streaming pass: one record is normalized, aggregated
// and run through mutual detection end-to-end before the next one is read.
// All engine state is owned by the goroutine calling Process.
type Analyzer struct {
	opts     Options
	store    *aggregate.Store
	detector *mutual.Detector
	counts   Counts
}

// New creates an analyzer with empty aggregate state.
func New(opts Options) *Analyzer {
	if opts.TopNodes <= 0 {
		opts.TopNodes = 10
	}
	if opts.TopNetworks <= 0 {
		opts.TopNetworks = 10
	}
	return &Analyzer{
		opts:     opts,
		store:    aggregate.NewStore(),
		detector: mutual.NewDetector(),
	}
}

// Process runs one raw record through the pipeline. Structural parse errors
// drop the record with a warning; metric errors keep the record's identity
// contributions and suppress its metric aggregates.
func (a *Analyzer) Process(raw model.RawRecord) {
	rec, err := normalize.Record(raw)
	if rec == nil {
		a.counts.Rejected++
		log.Printf("Warning: dropping line %d: %v", raw.LineIndex, err)
		return
	}
	if err != nil {
		if errors.Is(err, normalize.ErrInvalidMetric) {
			a.counts.MetricInvalid++
		}
		log.Printf("Warning: line %d kept without metric aggregates: %v", raw.LineIndex, err)
	}
	a.counts.Processed++
	a.store.Record(rec)
	a.detector.Observe(rec)
}

// Run consumes the channel until it closes.
func (a *Analyzer) Run(in <-chan model.RawRecord) {
	for raw := range in {
		a.Process(raw)
	}
}

// RunContext is Run with cancellation, honored only at the record boundary so
// aggregate mutations stay atomic.
func (a *Analyzer) RunContext(ctx context.Context, in <-chan model.RawRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			a.Process(raw)
		}
	}
}

// Counts returns the pipeline counters.
func (a *Analyzer) Counts() Counts { return a.counts }

// Report derives the read-side report from the current aggregate state. The
// state itself is not mutated; Report may be called repeatedly on a live
// stream to take snapshots.
func (a *Analyzer) Report() *report.Report {
	return report.Generate(a.store, a.detector, report.Params{
		Processed:   a.counts.Processed,
		Rejected:    a.counts.Rejected,
		TopNodes:    a.opts.TopNodes,
		TopNetworks: a.opts.TopNetworks,
	})
}
