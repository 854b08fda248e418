package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// TextWriter renders a report as human-readable console sections.
// It implements the model.Writer interface.
type TextWriter struct {
	out io.Writer
}

// NewTextWriter creates a text writer that renders to out.
func NewTextWriter(out io.Writer) model.Writer {
	return &TextWriter{out: out}
}

func (w *TextWriter) Write(payload interface{}, timestamp string) error {
	rep, ok := payload.(*Report)
	if !ok {
		return fmt.Errorf("invalid payload type for TextWriter: expected *report.Report, got %T", payload)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Traffic report (%s) ===\n", timestamp)
	fmt.Fprintf(&b, "Records processed: %d, rejected: %d\n\n", rep.RecordsProcessed, rep.RecordsRejected)

	fmt.Fprintf(&b, "-- Unique endpoints --\n")
	fmt.Fprintf(&b, "MACs: %d  IPs: %d  MAC/IP pairs: %d\n\n", rep.UniqueMACs, rep.UniqueIPs, rep.UniqueMACIPPairs)

	fmt.Fprintf(&b, "-- Throughput --\n")
	fmt.Fprintf(&b, "Total: %d bytes over %.3fs (avg %s)\n", rep.TotalBytes, rep.TotalTime, speed(rep.AverageSpeed, rep.AverageSpeedValid))
	fmt.Fprintf(&b, "UDP:   %d bytes over %.3fs (avg %s)\n\n", rep.UDPBytes, rep.UDPTime, speed(rep.AverageUDPSpeed, rep.AverageUDPSpeedValid))

	fmt.Fprintf(&b, "-- Peak speed --\n")
	if rep.Peak != nil {
		p := rep.Peak
		fmt.Fprintf(&b, "line %d: %s (%s:%d) -> %s (%s:%d) %s, %d bytes / %.3fs = %.2f B/s\n",
			p.LineIndex, p.SrcMAC, p.SrcIP, p.SrcPort, p.DstMAC, p.DstIP, p.DstPort,
			p.Protocol, p.ByteCount, p.Duration, p.Speed)
		fmt.Fprintf(&b, "Average UDP speed reaches peak: %s\n\n", yesNo(rep.UDPReachesPeak))
	} else {
		fmt.Fprintf(&b, "no metric-valid records\n\n")
	}

	fmt.Fprintf(&b, "-- Top nodes by speed --\n")
	if len(rep.TopNodes) == 0 {
		fmt.Fprintf(&b, "none\n")
	}
	for i, node := range rep.TopNodes {
		fmt.Fprintf(&b, "%2d. %s  %.2f B/s (%d bytes / %.3fs)\n", i+1, node.MAC, node.Speed(), node.Bytes, node.Time)
	}
	fmt.Fprintf(&b, "\n-- Top networks by sessions --\n")
	if len(rep.TopNetworks) == 0 {
		fmt.Fprintf(&b, "none\n")
	}
	for i, network := range rep.TopNetworks {
		fmt.Fprintf(&b, "%2d. %s  %d sessions\n", i+1, network.Network, network.Sessions)
	}

	fmt.Fprintf(&b, "\n-- Mutual transfers --\n")
	if len(rep.MutualPairs) == 0 {
		fmt.Fprintf(&b, "none\n")
	}
	for _, pair := range rep.MutualPairs {
		fmt.Fprintf(&b, "%s -> %s (%s): %d record(s)\n", pair.MAC, pair.Partner, pair.Protocol, pair.Records)
	}

	fmt.Fprintf(&b, "\n-- Proxy candidates --\n")
	if len(rep.ProxyCandidates) == 0 {
		fmt.Fprintf(&b, "none\n")
	}
	for _, mac := range rep.ProxyCandidates {
		fmt.Fprintf(&b, "%s\n", mac)
	}

	_, err := io.WriteString(w.out, b.String())
	return err
}

func speed(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f B/s", v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
