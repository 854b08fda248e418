package report

import (
	"time"

	"github.com/crazyharmony/traf-exercize/internal/engine/aggregate"
	"github.com/crazyharmony/traf-exercize/internal/engine/mutual"
)

// PeakRecord describes the single fastest transfer of the run.
type PeakRecord struct {
	LineIndex int     `json:"line_index"`
	SrcMAC    string  `json:"src_mac"`
	DstMAC    string  `json:"dst_mac"`
	SrcIP     string  `json:"src_ip"`
	DstIP     string  `json:"dst_ip"`
	SrcPort   uint16  `json:"src_port"`
	DstPort   uint16  `json:"dst_port"`
	Protocol  string  `json:"protocol"`
	ByteCount uint64  `json:"byte_count"`
	Duration  float64 `json:"duration_seconds"`
	Speed     float64 `json:"speed"`
}

// MutualPair is one direction of a confirmed bidirectional relationship.
type MutualPair struct {
	MAC      string `json:"mac"`
	Partner  string `json:"partner"`
	Protocol string `json:"protocol"`
	Records  int    `json:"records"`
}

// Report is the complete read-side output of one analysis pass. It is a pure
// derivation of engine state; generating it mutates nothing.
type Report struct {
	GeneratedAt      time.Time `json:"generated_at"`
	RecordsProcessed int       `json:"records_processed"`
	RecordsRejected  int       `json:"records_rejected"`

	UniqueMACs       int `json:"unique_macs"`
	UniqueIPs        int `json:"unique_ips"`
	UniqueMACIPPairs int `json:"unique_mac_ip_pairs"`

	TotalBytes        uint64  `json:"total_bytes"`
	TotalTime         float64 `json:"total_time_seconds"`
	AverageSpeed      float64 `json:"average_speed"`
	AverageSpeedValid bool    `json:"average_speed_valid"`

	UDPBytes             uint64  `json:"udp_bytes"`
	UDPTime              float64 `json:"udp_time_seconds"`
	AverageUDPSpeed      float64 `json:"average_udp_speed"`
	AverageUDPSpeedValid bool    `json:"average_udp_speed_valid"`

	Peak           *PeakRecord `json:"peak,omitempty"`
	UDPReachesPeak bool        `json:"udp_reaches_peak"`

	TopNodes    []aggregate.NodeSpeed       `json:"top_nodes"`
	TopNetworks []aggregate.NetworkSessions `json:"top_networks"`

	MutualPairs     []MutualPair `json:"mutual_pairs"`
	ProxyCandidates []string     `json:"proxy_candidates"`
}

// Params carries the inputs to report generation that do not live in the
// aggregate state.
type Params struct {
	Processed   int
	Rejected    int
	TopNodes    int
	TopNetworks int
}

// Generate derives the final report from the aggregate store and the mutual
// detector. Both are read, never written.
func Generate(store *aggregate.Store, detector *mutual.Detector, p Params) *Report {
	rep := &Report{
		GeneratedAt:      time.Now(),
		RecordsProcessed: p.Processed,
		RecordsRejected:  p.Rejected,
		UniqueMACs:       store.UniqueMACs(),
		UniqueIPs:        store.UniqueIPs(),
		UniqueMACIPPairs: store.UniquePairs(),
		TotalBytes:       store.TotalBytes(),
		TotalTime:        store.TotalTime(),
		UDPBytes:         store.UDPBytes(),
		UDPTime:          store.UDPTime(),
		TopNodes:         store.TopNodes(p.TopNodes),
		TopNetworks:      store.TopNetworks(p.TopNetworks),
		ProxyCandidates:  detector.ProxyCandidates(),
	}

	rep.AverageSpeed, rep.AverageSpeedValid = store.AverageSpeed()
	rep.AverageUDPSpeed, rep.AverageUDPSpeedValid = store.AverageUDPSpeed()

	if peak := store.PeakRecord(); peak != nil {
		rep.Peak = &PeakRecord{
			LineIndex: peak.LineIndex,
			SrcMAC:    peak.SrcMAC,
			DstMAC:    peak.DstMAC,
			SrcIP:     peak.SrcIP,
			DstIP:     peak.DstIP,
			SrcPort:   peak.SrcPort,
			DstPort:   peak.DstPort,
			Protocol:  peak.Protocol.String(),
			ByteCount: peak.ByteCount,
			Duration:  peak.Duration,
			Speed:     peak.Speed(),
		}
		rep.UDPReachesPeak = rep.AverageUDPSpeedValid && rep.AverageUDPSpeed >= rep.Peak.Speed
	}

	for _, flow := range detector.MutualFlows() {
		rep.MutualPairs = append(rep.MutualPairs, MutualPair{
			MAC:      flow.Key.Src,
			Partner:  flow.Key.Dst,
			Protocol: flow.Key.Proto.String(),
			Records:  len(flow.Records),
		})
	}

	return rep
}
