package normalize

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// FieldCount is the number of positional fields in one capture log record:
// src endpoint, src MAC, dst endpoint, dst MAC, protocol flag, byte count,
// time interval.
const FieldCount = 7

var (
	ErrFieldCount          = errors.New("record does not have exactly 7 fields")
	ErrMalformedMAC        = errors.New("malformed mac address")
	ErrInvalidOctet        = errors.New("invalid mac octet")
	ErrMalformedEndpoint   = errors.New("malformed ip:port endpoint")
	ErrInvalidProtocolFlag = errors.New(`protocol flag must be "true" or "false"`)
	ErrInvalidMetric       = errors.New("invalid metric value")
)

// ParseError reports which field of which input line failed to parse.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: field %q: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record validates and canonicalizes one raw field tuple into a TransferRecord.
//
// Structural failures (MAC, endpoint, protocol flag) return a nil record and
// a ParseError; the record must be dropped entirely. Metric failures (byte
// count or duration not a positive number) return the record with
// MetricsValid=false together with an ErrInvalidMetric ParseError: the record
// still contributes to identity-based aggregates.
func Record(raw model.RawRecord) (*model.TransferRecord, error) {
	if len(raw.Fields) != FieldCount {
		return nil, &ParseError{Line: raw.LineIndex, Field: "record", Err: ErrFieldCount}
	}

	srcIP, srcPort, err := splitEndpoint(raw.Fields[0])
	if err != nil {
		return nil, &ParseError{Line: raw.LineIndex, Field: "src_endpoint", Err: err}
	}
	srcMAC, err := CanonicalMAC(raw.Fields[1])
	if err != nil {
		return nil, &ParseError{Line: raw.LineIndex, Field: "src_mac", Err: err}
	}
	dstIP, dstPort, err := splitEndpoint(raw.Fields[2])
	if err != nil {
		return nil, &ParseError{Line: raw.LineIndex, Field: "dst_endpoint", Err: err}
	}
	dstMAC, err := CanonicalMAC(raw.Fields[3])
	if err != nil {
		return nil, &ParseError{Line: raw.LineIndex, Field: "dst_mac", Err: err}
	}

	var proto model.Protocol
	switch raw.Fields[4] {
	case "true":
		proto = model.ProtocolUDP
	case "false":
		proto = model.ProtocolTCP
	default:
		return nil, &ParseError{Line: raw.LineIndex, Field: "is_udp", Err: ErrInvalidProtocolFlag}
	}

	rec := &model.TransferRecord{
		LineIndex: raw.LineIndex,
		SrcMAC:    srcMAC,
		DstMAC:    dstMAC,
		SrcIP:     srcIP,
		DstIP:     dstIP,
		SrcPort:   srcPort,
		DstPort:   dstPort,
		Protocol:  proto,
	}

	var metricErr error
	byteCount, err := strconv.ParseUint(raw.Fields[5], 10, 64)
	if err != nil || byteCount == 0 {
		metricErr = &ParseError{Line: raw.LineIndex, Field: "data_size", Err: ErrInvalidMetric}
	} else {
		rec.ByteCount = byteCount
	}
	duration, err := strconv.ParseFloat(raw.Fields[6], 64)
	if err != nil || duration <= 0 {
		metricErr = &ParseError{Line: raw.LineIndex, Field: "time_interval", Err: ErrInvalidMetric}
	} else {
		rec.Duration = duration
	}
	rec.MetricsValid = metricErr == nil

	return rec, metricErr
}

// CanonicalMAC normalizes a colon-separated MAC string to its canonical form:
// uppercase hex, two digits per octet. Exactly six octets are required and an
// empty octet is rejected. Canonicalizing an already-canonical MAC is a no-op.
func CanonicalMAC(s string) (string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", ErrMalformedMAC
	}
	out := make([]string, len(parts))
	for i, part := range parts {
		if part == "" {
			return "", ErrMalformedMAC
		}
		v, err := strconv.ParseUint(part, 16, 64)
		if err != nil || v > 255 {
			return "", ErrInvalidOctet
		}
		out[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(out, ":"), nil
}

// splitEndpoint parses an "ip:port" string into an IPv4 dotted-quad address
// and a port number.
func splitEndpoint(s string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, ErrMalformedEndpoint
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return "", 0, ErrMalformedEndpoint
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, ErrMalformedEndpoint
	}
	return ip.To4().String(), uint16(port), nil
}
