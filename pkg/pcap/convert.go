package pcap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Converter turns TCP/UDP-over-IPv4 packets from a pcap capture into
// delimiter-separated transfer records. Each packet becomes one record; the
// record's time interval is the inter-arrival gap within its directional
// (MAC pair, protocol) flow, defaulting to one second for a flow's first
// packet.
type Converter struct {
	lastSeen map[flowKey]time.Time
}

type flowKey struct {
	srcMAC string
	dstMAC string
	udp    bool
}

const defaultInterval = 1.0

// NewConverter creates a Converter with no flow history.
func NewConverter() *Converter {
	return &Converter{lastSeen: make(map[flowKey]time.Time)}
}

// Convert reads packets from r (a pcap stream) and writes one record line per
// convertible packet to w. It returns the number of records written.
// Non-IPv4 and non-TCP/UDP packets are skipped.
func (c *Converter) Convert(r io.Reader, w io.Writer) (int, error) {
	pcapReader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read pcap header: %w", err)
	}

	written := 0
	for {
		data, ci, err := pcapReader.ReadPacketData()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("failed to read packet: %w", err)
		}
		line, ok := c.Line(data, ci)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return written, fmt.Errorf("failed to write record: %w", err)
		}
		written++
	}
}

// Line converts one raw packet into a record line. The second result is false
// when the packet is not convertible.
func (c *Converter) Line(data []byte, ci gopacket.CaptureInfo) (string, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return "", false
	}
	eth := ethLayer.(*layers.Ethernet)

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return "", false
	}
	ip := ipLayer.(*layers.IPv4)

	var srcPort, dstPort uint16
	var isUDP bool
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		srcPort, dstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		srcPort, dstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
		isUDP = true
	} else {
		return "", false
	}

	srcMAC := strings.ToUpper(eth.SrcMAC.String())
	dstMAC := strings.ToUpper(eth.DstMAC.String())

	key := flowKey{srcMAC: srcMAC, dstMAC: dstMAC, udp: isUDP}
	interval := defaultInterval
	if last, ok := c.lastSeen[key]; ok {
		if gap := ci.Timestamp.Sub(last).Seconds(); gap > 0 {
			interval = gap
		}
	}
	c.lastSeen[key] = ci.Timestamp

	line := fmt.Sprintf("%s:%d;%s;%s:%d;%s;%t;%d;%.6f",
		ip.SrcIP, srcPort, srcMAC, ip.DstIP, dstPort, dstMAC, isUDP, ci.Length, interval)
	return line, true
}
