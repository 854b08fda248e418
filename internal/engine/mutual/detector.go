package mutual

import (
	"errors"
	"fmt"
	"log"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

// ErrMutualValidation tags registration attempts rejected by the consistency
// checks. Rejections are logged and leave the registry untouched.
var ErrMutualValidation = errors.New("mutual registration validation failed")

// FlowKey identifies one direction of traffic between two MACs under a
// protocol.
type FlowKey struct {
	Src   string
	Dst   string
	Proto model.Protocol
}

// Reverse returns the key of the opposite direction.
func (k FlowKey) Reverse() FlowKey {
	return FlowKey{Src: k.Dst, Dst: k.Src, Proto: k.Proto}
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s->%s/%s", k.Src, k.Dst, k.Proto)
}

// pairKey identifies the unordered MAC pair under a protocol. A is the
// lexicographically smaller MAC.
type pairKey struct {
	A, B  string
	Proto model.Protocol
}

func pairKeyOf(src, dst string, proto model.Protocol) pairKey {
	if src < dst {
		return pairKey{A: src, B: dst, Proto: proto}
	}
	return pairKey{A: dst, B: src, Proto: proto}
}

type pairState uint8

const (
	// stateOneSided: records exist in at least one direction, none confirmed mutual.
	stateOneSided pairState = iota + 1
	// stateMutual: traffic confirmed in both directions; every further record
	// of the pair is appended to the registry.
	stateMutual
)

// side is one half of a mutual registration: the records mac claims to have
// sent to partner.
type side struct {
	mac     string
	partner string
	records []*model.TransferRecord
}

// Detector maintains the directional transfer index and the mutual-transfer
// registry. It decides, as each record arrives, whether the record completes
// a previously one-sided relationship.
//
// The pair state machine drives dispatch: a pair moves ONE_SIDED -> MUTUAL on
// the first record seen in the reversed direction, at which point the full
// back-talk history migrates into the registry; once MUTUAL, records of the
// pair skip detection entirely and are appended to their side's registry
// directly (deduplicated by line index). The registry of a mutual pair
// therefore holds every record exchanged in both directions, exactly once.
//
// Owned by a single processing goroutine; not safe for concurrent use.
type Detector struct {
	index    map[FlowKey][]*model.TransferRecord
	states   map[pairKey]pairState
	registry map[FlowKey][]*model.TransferRecord
	seen     map[FlowKey]map[int]struct{}
	order    []FlowKey // registry keys in first-registration order
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{
		index:    make(map[FlowKey][]*model.TransferRecord),
		states:   make(map[pairKey]pairState),
		registry: make(map[FlowKey][]*model.TransferRecord),
		seen:     make(map[FlowKey]map[int]struct{}),
	}
}

// Observe runs mutual detection for one record and then appends it to the
// directional transfer index. The pair state selects the path: a MUTUAL pair
// appends the record straight into its registry side, everything else goes
// through the reverse-lookup/validation transition. The index append is
// unconditional: it happens whether or not a registration fired, so the index
// is a complete history independent of mutual detection.
func (d *Detector) Observe(rec *model.TransferRecord) {
	forward := FlowKey{Src: rec.SrcMAC, Dst: rec.DstMAC, Proto: rec.Protocol}
	pk := pairKeyOf(rec.SrcMAC, rec.DstMAC, rec.Protocol)

	switch d.states[pk] {
	case stateMutual:
		d.appendSide(side{mac: rec.SrcMAC, partner: rec.DstMAC, records: []*model.TransferRecord{rec}}, rec.Protocol)
	default:
		if back := d.index[forward.Reverse()]; len(back) > 0 {
			trigger := side{mac: rec.SrcMAC, partner: rec.DstMAC, records: []*model.TransferRecord{rec}}
			backTalk := side{mac: rec.DstMAC, partner: rec.SrcMAC, records: back}
			if err := d.register(trigger, backTalk); err != nil {
				log.Printf("Warning: mutual registration aborted for %s <-> %s (%s): %v",
					rec.SrcMAC, rec.DstMAC, rec.Protocol, err)
			} else {
				d.states[pk] = stateMutual
			}
		} else if d.states[pk] == 0 {
			d.states[pk] = stateOneSided
		}
	}

	d.index[forward] = append(d.index[forward], rec)
}

// register validates both sides and, if every check holds, appends each
// side's records into the registry. Validation failures collect every
// violation and abort without touching the registry.
func (d *Detector) register(a, b side) error {
	var violations []error
	if len(a.records) == 0 {
		violations = append(violations, fmt.Errorf("side %s has no records", a.mac))
	}
	if len(b.records) == 0 {
		violations = append(violations, fmt.Errorf("side %s has no records", b.mac))
	}

	var proto model.Protocol
	if len(a.records) > 0 {
		proto = a.records[0].Protocol
	} else if len(b.records) > 0 {
		proto = b.records[0].Protocol
	}
	for _, s := range []side{a, b} {
		for _, rec := range s.records {
			if rec.SrcMAC != s.mac || rec.DstMAC != s.partner {
				violations = append(violations, fmt.Errorf(
					"record on line %d flows %s->%s, expected %s->%s",
					rec.LineIndex, rec.SrcMAC, rec.DstMAC, s.mac, s.partner))
			}
			if rec.Protocol != proto {
				violations = append(violations, fmt.Errorf(
					"record on line %d has protocol %s, expected %s",
					rec.LineIndex, rec.Protocol, proto))
			}
		}
	}
	if len(violations) > 0 {
		for _, v := range violations {
			log.Printf("Warning: mutual validation: %v", v)
		}
		return fmt.Errorf("%w: %d violation(s)", ErrMutualValidation, len(violations))
	}

	d.appendSide(a, proto)
	d.appendSide(b, proto)
	return nil
}

// appendSide inserts a side's records into its registry list, skipping
// records whose line index is already present.
func (d *Detector) appendSide(s side, proto model.Protocol) {
	key := FlowKey{Src: s.mac, Dst: s.partner, Proto: proto}
	if d.seen[key] == nil {
		d.seen[key] = make(map[int]struct{})
		d.order = append(d.order, key)
	}
	for _, rec := range s.records {
		if _, dup := d.seen[key][rec.LineIndex]; dup {
			log.Printf("Warning: record on line %d already registered for %s, skipping", rec.LineIndex, key)
			continue
		}
		d.seen[key][rec.LineIndex] = struct{}{}
		d.registry[key] = append(d.registry[key], rec)
	}
}

// MutualFlow is one direction of a confirmed bidirectional relationship.
type MutualFlow struct {
	Key     FlowKey
	Records []*model.TransferRecord
}

// MutualFlows returns the registry content in first-registration order.
func (d *Detector) MutualFlows() []MutualFlow {
	flows := make([]MutualFlow, 0, len(d.order))
	for _, key := range d.order {
		flows = append(flows, MutualFlow{Key: key, Records: d.registry[key]})
	}
	return flows
}

// Registered returns the registry list for one direction. Intended for report
// generation and tests.
func (d *Detector) Registered(src, dst string, proto model.Protocol) []*model.TransferRecord {
	return d.registry[FlowKey{Src: src, Dst: dst, Proto: proto}]
}

// Transfers returns the directional index list for one direction.
func (d *Detector) Transfers(src, dst string, proto model.Protocol) []*model.TransferRecord {
	return d.index[FlowKey{Src: src, Dst: dst, Proto: proto}]
}

// TransferCount returns the total number of records held by the directional
// index.
func (d *Detector) TransferCount() int {
	n := 0
	for _, recs := range d.index {
		n += len(recs)
	}
	return n
}

// ProxyCandidates returns, in first-registration order, every MAC engaged in
// more than one distinct bidirectional relationship, counting (protocol,
// partner) registry entries across protocols.
func (d *Detector) ProxyCandidates() []string {
	counts := make(map[string]int)
	var macs []string
	for _, key := range d.order {
		if counts[key.Src] == 0 {
			macs = append(macs, key.Src)
		}
		counts[key.Src]++
	}
	var candidates []string
	for _, mac := range macs {
		if counts[mac] > 1 {
			candidates = append(candidates, mac)
		}
	}
	return candidates
}
