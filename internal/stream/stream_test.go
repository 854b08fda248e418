package stream

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/crazyharmony/traf-exercize/internal/engine/analyzer"
	"github.com/crazyharmony/traf-exercize/internal/metrics"
	"github.com/crazyharmony/traf-exercize/internal/model"
)

// newTestAggregator wires an aggregator around the analyzer only, with no
// NATS subscription, so the delivery and shutdown paths can run in-process.
func newTestAggregator(m *metrics.Metrics) *Aggregator {
	a := &Aggregator{
		analyzer: analyzer.New(analyzer.Options{}),
		metrics:  m,
		records:  make(chan model.RawRecord, 8),
		interval: time.Minute,
	}
	a.latest.Store(a.analyzer.Report())
	return a
}

func TestAggregatorStopDrainsAndSnapshots(t *testing.T) {
	m := metrics.New()
	a := newTestAggregator(m)
	a.wg.Add(1)
	go a.run()

	a.handleLine("192.168.1.10:5000;aa:bb:cc:dd:ee:01;192.168.1.20:6000;aa:bb:cc:dd:ee:02;false;1000;2.0")
	a.handleLine("bad;line")
	a.Stop()

	rep := a.Latest()
	if rep.RecordsProcessed != 1 {
		t.Errorf("RecordsProcessed = %d, want 1 after the final snapshot", rep.RecordsProcessed)
	}
	if rep.RecordsRejected != 1 {
		t.Errorf("RecordsRejected = %d, want 1", rep.RecordsRejected)
	}
	if got := testutil.ToFloat64(m.RecordsTotal); got != 2 {
		t.Errorf("records counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ParseErrors.WithLabelValues("structural")); got != 1 {
		t.Errorf("structural parse-error counter = %v, want 1", got)
	}
}

func TestAggregatorLineIndexAdvances(t *testing.T) {
	a := newTestAggregator(nil)
	a.wg.Add(1)
	go a.run()

	// The second line reuses the first's endpoints; both must be processed
	// under distinct line indexes for registry dedup to work downstream.
	a.handleLine("192.168.1.10:5000;aa:bb:cc:dd:ee:01;192.168.1.20:6000;aa:bb:cc:dd:ee:02;false;100;1.0")
	a.handleLine("192.168.1.20:6000;aa:bb:cc:dd:ee:02;192.168.1.10:5000;aa:bb:cc:dd:ee:01;false;100;1.0")
	a.Stop()

	rep := a.Latest()
	if rep.RecordsProcessed != 2 {
		t.Fatalf("RecordsProcessed = %d, want 2", rep.RecordsProcessed)
	}
	if len(rep.MutualPairs) != 2 {
		t.Errorf("MutualPairs = %d directions, want 2", len(rep.MutualPairs))
	}
}
