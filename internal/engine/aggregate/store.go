package aggregate

import (
	"fmt"
	"log"
	"net"
	"sort"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// NodeSpeed is one entry of the per-node speed ranking: the running byte and
// time sums for a single source MAC.
type NodeSpeed struct {
	MAC   string  `json:"mac"`
	Bytes uint64  `json:"bytes"`
	Time  float64 `json:"time_seconds"`
}

// Speed returns the node's aggregate transfer rate in bytes per second.
func (n NodeSpeed) Speed() float64 {
	if n.Time <= 0 {
		return 0
	}
	return float64(n.Bytes) / n.Time
}

// NetworkSessions is one entry of the per-subnet session ranking.
type NetworkSessions struct {
	Network  string `json:"network"`
	Sessions int    `json:"sessions"`
}

// Store is the bundle of independent running aggregates maintained over the
// record stream. Every aggregate is updated at most once per record by
// Record; nothing is ever removed or corrected afterwards. The store is owned
// by a single processing goroutine and is not safe for concurrent use.
type Store struct {
	macs  map[string]struct{}
	ips   map[string]struct{}
	pairs map[string]struct{}

	totalBytes uint64
	totalTime  float64
	udpBytes   uint64
	udpTime    float64

	peak *model.TransferRecord

	nodeBytes map[string]uint64
	nodeTime  map[string]float64
	nodeOrder []string

	netSessions map[string]int
	netOrder    []string
}

// NewStore creates an empty aggregate store.
func NewStore() *Store {
	return &Store{
		macs:        make(map[string]struct{}),
		ips:         make(map[string]struct{}),
		pairs:       make(map[string]struct{}),
		nodeBytes:   make(map[string]uint64),
		nodeTime:    make(map[string]float64),
		netSessions: make(map[string]int),
	}
}

// Record applies a normalized record to every aggregate it qualifies for.
// Identity contributions (uniqueness sets, subnet sessions) happen for every
// record; byte/time/speed aggregates only when the record's metrics are valid.
func (s *Store) Record(rec *model.TransferRecord) {
	s.macs[rec.SrcMAC] = struct{}{}
	s.macs[rec.DstMAC] = struct{}{}
	s.ips[rec.SrcIP] = struct{}{}
	s.ips[rec.DstIP] = struct{}{}
	s.pairs[rec.SrcMAC+"/"+rec.SrcIP] = struct{}{}
	s.pairs[rec.DstMAC+"/"+rec.DstIP] = struct{}{}

	// Each endpoint counts as one session toward its class-C-style subnet.
	for _, ip := range []string{rec.SrcIP, rec.DstIP} {
		network, err := SubnetKey(ip)
		if err != nil {
			log.Printf("Warning: subnet classification failed for %q on line %d: %v", ip, rec.LineIndex, err)
			continue
		}
		if network == "" {
			continue
		}
		if _, ok := s.netSessions[network]; !ok {
			s.netOrder = append(s.netOrder, network)
		}
		s.netSessions[network]++
	}

	if !rec.MetricsValid {
		return
	}

	s.totalBytes += rec.ByteCount
	s.totalTime += rec.Duration
	if rec.Protocol == model.ProtocolUDP {
		s.udpBytes += rec.ByteCount
		s.udpTime += rec.Duration
	}

	// Strict greater-than: the first record seen wins exact ties.
	if s.peak == nil || rec.Speed() > s.peak.Speed() {
		s.peak = rec
	}

	if _, ok := s.nodeBytes[rec.SrcMAC]; !ok {
		s.nodeOrder = append(s.nodeOrder, rec.SrcMAC)
	}
	s.nodeBytes[rec.SrcMAC] += rec.ByteCount
	s.nodeTime[rec.SrcMAC] += rec.Duration
}

// SubnetKey returns the class-C-style subnet id ("a.b.c.0") for an IPv4
// address whose first octet's top three bits are 110, or "" when the address
// does not fall into that range.
func SubnetKey(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	v4 := parsed.To4()
	if v4[0]>>5 != 0b110 {
		return "", nil
	}
	return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2]), nil
}

func (s *Store) UniqueMACs() int  { return len(s.macs) }
func (s *Store) UniqueIPs() int   { return len(s.ips) }
func (s *Store) UniquePairs() int { return len(s.pairs) }

func (s *Store) TotalBytes() uint64 { return s.totalBytes }
func (s *Store) TotalTime() float64 { return s.totalTime }
func (s *Store) UDPBytes() uint64   { return s.udpBytes }
func (s *Store) UDPTime() float64   { return s.udpTime }

// AverageSpeed returns the aggregate transfer rate over all metric-valid
// records. The second result is false when no time has been accumulated.
func (s *Store) AverageSpeed() (float64, bool) {
	if s.totalTime <= 0 {
		return 0, false
	}
	return float64(s.totalBytes) / s.totalTime, true
}

// AverageUDPSpeed is AverageSpeed restricted to UDP records.
func (s *Store) AverageUDPSpeed() (float64, bool) {
	if s.udpTime <= 0 {
		return 0, false
	}
	return float64(s.udpBytes) / s.udpTime, true
}

// PeakRecord returns the metric-valid record with the highest speed seen so
// far, or nil when there is none.
func (s *Store) PeakRecord() *model.TransferRecord { return s.peak }

// TopNodes ranks source MACs by aggregate speed (bytes/time) descending and
// truncates to n entries. Ties keep insertion order. n < 0 means no truncation.
func (s *Store) TopNodes(n int) []NodeSpeed {
	ranked := make([]NodeSpeed, 0, len(s.nodeOrder))
	for _, mac := range s.nodeOrder {
		ranked = append(ranked, NodeSpeed{MAC: mac, Bytes: s.nodeBytes[mac], Time: s.nodeTime[mac]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Speed() > ranked[j].Speed()
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopNetworks ranks class-C-style subnets by session count descending and
// truncates to n entries. Ties keep insertion order. n < 0 means no truncation.
func (s *Store) TopNetworks(n int) []NetworkSessions {
	ranked := make([]NetworkSessions, 0, len(s.netOrder))
	for _, network := range s.netOrder {
		ranked = append(ranked, NetworkSessions{Network: network, Sessions: s.netSessions[network]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Sessions > ranked[j].Sessions
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
