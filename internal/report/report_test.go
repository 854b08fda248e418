package report

import (
	"strings"
	"testing"

	"github.com/crazyharmony/traf-exercize/internal/engine/aggregate"
	"github.com/crazyharmony/traf-exercize/internal/engine/mutual"
	"github.com/crazyharmony/traf-exercize/internal/model"
)

func record(line int, srcMAC, dstMAC string, proto model.Protocol, bytes uint64, duration float64) *model.TransferRecord {
	return &model.TransferRecord{
		LineIndex:    line,
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		SrcIP:        "192.168.1.10",
		DstIP:        "192.168.1.20",
		SrcPort:      5000,
		DstPort:      6000,
		Protocol:     proto,
		ByteCount:    bytes,
		Duration:     duration,
		MetricsValid: true,
	}
}

func TestGenerateEmpty(t *testing.T) {
	rep := Generate(aggregate.NewStore(), mutual.NewDetector(), Params{TopNodes: 10, TopNetworks: 10})

	if rep.Peak != nil {
		t.Errorf("Peak = %+v, want nil", rep.Peak)
	}
	if rep.AverageSpeedValid || rep.AverageUDPSpeedValid {
		t.Error("averages must be flagged invalid with no records")
	}
	if rep.UDPReachesPeak {
		t.Error("UDPReachesPeak must be false with no peak")
	}
	if len(rep.TopNodes) != 0 || len(rep.MutualPairs) != 0 || len(rep.ProxyCandidates) != 0 {
		t.Error("empty state must produce empty rankings")
	}
}

func TestGenerateDerivations(t *testing.T) {
	store := aggregate.NewStore()
	detector := mutual.NewDetector()

	a := record(0, "AA:AA:AA:AA:AA:01", "AA:AA:AA:AA:AA:02", model.ProtocolTCP, 1000, 2.0)
	b := record(1, "AA:AA:AA:AA:AA:02", "AA:AA:AA:AA:AA:01", model.ProtocolUDP, 4000, 1.0)
	for _, rec := range []*model.TransferRecord{a, b} {
		store.Record(rec)
		detector.Observe(rec)
	}

	rep := Generate(store, detector, Params{Processed: 2, TopNodes: 10, TopNetworks: 10})

	if rep.TotalBytes != 5000 || rep.TotalTime != 3.0 {
		t.Errorf("totals = (%d, %v), want (5000, 3)", rep.TotalBytes, rep.TotalTime)
	}
	if !rep.AverageUDPSpeedValid || rep.AverageUDPSpeed != 4000.0 {
		t.Errorf("AverageUDPSpeed = (%v, %v), want (4000, true)", rep.AverageUDPSpeed, rep.AverageUDPSpeedValid)
	}
	if rep.Peak == nil || rep.Peak.LineIndex != 1 || rep.Peak.Speed != 4000.0 {
		t.Fatalf("Peak = %+v, want the UDP record at 4000 B/s", rep.Peak)
	}
	// The peak is itself the only UDP record, so the UDP average equals it.
	if !rep.UDPReachesPeak {
		t.Error("UDPReachesPeak = false, want true when UDP average equals the peak speed")
	}
	// Opposite protocols never form a mutual pair.
	if len(rep.MutualPairs) != 0 {
		t.Errorf("MutualPairs = %+v, want none across protocols", rep.MutualPairs)
	}
}

func TestGenerateUDPBelowPeak(t *testing.T) {
	store := aggregate.NewStore()

	store.Record(record(0, "AA:AA:AA:AA:AA:01", "AA:AA:AA:AA:AA:02", model.ProtocolTCP, 9000, 1.0))
	store.Record(record(1, "AA:AA:AA:AA:AA:03", "AA:AA:AA:AA:AA:04", model.ProtocolUDP, 100, 1.0))

	rep := Generate(store, mutual.NewDetector(), Params{TopNodes: 10, TopNetworks: 10})
	if rep.Peak == nil || rep.Peak.Speed != 9000.0 {
		t.Fatalf("Peak = %+v, want the TCP record", rep.Peak)
	}
	if rep.UDPReachesPeak {
		t.Error("UDPReachesPeak = true, want false when the UDP average is below the peak")
	}
}

func TestGenerateMutualPairs(t *testing.T) {
	store := aggregate.NewStore()
	detector := mutual.NewDetector()

	recs := []*model.TransferRecord{
		record(0, "AA:AA:AA:AA:AA:01", "AA:AA:AA:AA:AA:02", model.ProtocolTCP, 100, 1.0),
		record(1, "AA:AA:AA:AA:AA:02", "AA:AA:AA:AA:AA:01", model.ProtocolTCP, 200, 1.0),
		record(2, "AA:AA:AA:AA:AA:01", "AA:AA:AA:AA:AA:02", model.ProtocolTCP, 300, 1.0),
	}
	for _, rec := range recs {
		store.Record(rec)
		detector.Observe(rec)
	}

	rep := Generate(store, detector, Params{TopNodes: 10, TopNetworks: 10})
	if len(rep.MutualPairs) != 2 {
		t.Fatalf("MutualPairs = %d entries, want one per direction", len(rep.MutualPairs))
	}
	got := map[string]int{}
	for _, pair := range rep.MutualPairs {
		got[pair.MAC] = pair.Records
	}
	if got["AA:AA:AA:AA:AA:01"] != 2 {
		t.Errorf("records for 01 -> 02 = %d, want 2", got["AA:AA:AA:AA:AA:01"])
	}
	if got["AA:AA:AA:AA:AA:02"] != 1 {
		t.Errorf("records for 02 -> 01 = %d, want 1", got["AA:AA:AA:AA:AA:02"])
	}
}

func TestTextWriterSections(t *testing.T) {
	store := aggregate.NewStore()
	store.Record(record(0, "AA:AA:AA:AA:AA:01", "AA:AA:AA:AA:AA:02", model.ProtocolTCP, 1000, 2.0))
	rep := Generate(store, mutual.NewDetector(), Params{Processed: 1, TopNodes: 10, TopNetworks: 10})

	var out strings.Builder
	w := NewTextWriter(&out)
	if err := w.Write(rep, "2026-01-02_15-04-05"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"=== Traffic report (2026-01-02_15-04-05) ===",
		"Records processed: 1, rejected: 0",
		"MACs: 2  IPs: 2  MAC/IP pairs: 2",
		"Total: 1000 bytes over 2.000s (avg 500.00 B/s)",
		"UDP:   0 bytes over 0.000s (avg n/a)",
		"= 500.00 B/s",
		"Average UDP speed reaches peak: no",
		"-- Mutual transfers --\nnone",
		"-- Proxy candidates --\nnone",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q\n%s", want, text)
		}
	}
}

func TestTextWriterEmptyReport(t *testing.T) {
	rep := Generate(aggregate.NewStore(), mutual.NewDetector(), Params{TopNodes: 10, TopNetworks: 10})

	var out strings.Builder
	if err := NewTextWriter(&out).Write(rep, "ts"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(out.String(), "no metric-valid records") {
		t.Errorf("empty report must state the missing peak:\n%s", out.String())
	}
}

func TestTextWriterRejectsWrongPayload(t *testing.T) {
	var out strings.Builder
	if err := NewTextWriter(&out).Write("not a report", "ts"); err == nil {
		t.Error("expected an error for a non-report payload")
	}
}
