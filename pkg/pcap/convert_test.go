package pcap

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/crazyharmony/traf-exercize/internal/engine/normalize"
	"github.com/crazyharmony/traf-exercize/pkg/traflog"
)

func buildCapture(t *testing.T, timestamps []time.Time) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	writer := pcapgo.NewWriter(&buf)
	if err := writer.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("Failed to write pcap header: %v", err)
	}

	srcMAC, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	dstMAC, _ := net.ParseMAC("11:22:33:44:55:66")

	for _, ts := range timestamps {
		eth := &layers.Ethernet{
			SrcMAC:       srcMAC,
			DstMAC:       dstMAC,
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.ParseIP("192.168.1.5"),
			DstIP:    net.ParseIP("10.0.0.1"),
		}
		tcp := &layers.TCP{
			SrcPort: 443,
			DstPort: 51000,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			t.Fatalf("Failed to set network layer: %v", err)
		}

		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		payload := gopacket.Payload(bytes.Repeat([]byte{0xAB}, 100))
		if err := gopacket.SerializeLayers(sb, opts, eth, ip, tcp, payload); err != nil {
			t.Fatalf("Failed to serialize packet: %v", err)
		}
		data := sb.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := writer.WritePacket(ci, data); err != nil {
			t.Fatalf("Failed to write packet: %v", err)
		}
	}
	return &buf
}

func TestConvert(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	capture := buildCapture(t, []time.Time{base, base.Add(500 * time.Millisecond)})

	var out bytes.Buffer
	n, err := NewConverter().Convert(capture, &out)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 records, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 output lines, got %d", len(lines))
	}

	// Every converted line must survive the normalizer.
	for i, line := range lines {
		raw := traflog.SplitLine(line, i)
		rec, err := normalize.Record(raw)
		if err != nil {
			t.Fatalf("Converted line %d does not normalize: %v", i, err)
		}
		if rec.SrcMAC != "AA:BB:CC:DD:EE:FF" || rec.DstMAC != "11:22:33:44:55:66" {
			t.Errorf("Line %d has unexpected MACs: %s -> %s", i, rec.SrcMAC, rec.DstMAC)
		}
		if rec.SrcIP != "192.168.1.5" || rec.SrcPort != 443 {
			t.Errorf("Line %d has unexpected src endpoint: %s:%d", i, rec.SrcIP, rec.SrcPort)
		}
		if rec.Protocol.String() != "TCP" {
			t.Errorf("Line %d has unexpected protocol %s", i, rec.Protocol)
		}
	}

	// First packet of a flow gets the default interval, the second its
	// inter-arrival gap.
	first := traflog.SplitLine(lines[0], 0)
	if first.Fields[6] != "1.000000" {
		t.Errorf("Expected default interval for first packet, got %s", first.Fields[6])
	}
	second := traflog.SplitLine(lines[1], 1)
	if second.Fields[6] != "0.500000" {
		t.Errorf("Expected 0.5s inter-arrival interval, got %s", second.Fields[6])
	}
}
