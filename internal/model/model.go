package model

import "fmt"

// Protocol identifies the transport protocol of a transfer record.
type Protocol uint8

const (
	ProtocolTCP Protocol = iota
	ProtocolUDP
)

func (p Protocol) String() string {
	if p == ProtocolUDP {
		return "UDP"
	}
	return "TCP"
}

// RawRecord is one unparsed line of the capture log: the positional string
// fields plus the zero-based line index they were read from.
type RawRecord struct {
	LineIndex int
	Fields    []string
}

// TransferRecord is a single normalized transfer. It is immutable once built.
//
// A record whose identity fields (MACs, endpoints, protocol) parsed but whose
// metrics did not still participates in identity-based aggregates; it carries
// MetricsValid=false and is excluded from byte/time/speed aggregates.
type TransferRecord struct {
	LineIndex int

	SrcMAC string
	DstMAC string

	SrcIP   string
	DstIP   string
	SrcPort uint16
	DstPort uint16

	Protocol Protocol

	ByteCount    uint64
	Duration     float64 // seconds
	MetricsValid bool
}

// Speed returns the transfer rate in bytes per second, or 0 when the record's
// metrics are invalid.
func (r *TransferRecord) Speed() float64 {
	if !r.MetricsValid || r.Duration <= 0 {
		return 0
	}
	return float64(r.ByteCount) / r.Duration
}

func (r *TransferRecord) String() string {
	return fmt.Sprintf("line %d: %s (%s:%d) -> %s (%s:%d) %s %d bytes / %.3fs",
		r.LineIndex, r.SrcMAC, r.SrcIP, r.SrcPort, r.DstMAC, r.DstIP, r.DstPort,
		r.Protocol, r.ByteCount, r.Duration)
}
