package types

import (
	"encoding/json"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
)

// Phase is the block execution phase an event was emitted in. Exactly one
// field is set.
type Phase struct {
	ApplyExtrinsic *uint32
	Finalization   bool
	Initialization bool
}

// IsApplyExtrinsic reports whether the event was emitted by the extrinsic at
// index.
func (p Phase) IsApplyExtrinsic(index uint32) bool {
	return p.ApplyExtrinsic != nil && *p.ApplyExtrinsic == index
}

func (p Phase) String() string {
	switch {
	case p.ApplyExtrinsic != nil:
		return fmt.Sprintf("ApplyExtrinsic(%d)", *p.ApplyExtrinsic)
	case p.Finalization:
		return "Finalization"
	case p.Initialization:
		return "Initialization"
	}
	return "Unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	if p.ApplyExtrinsic != nil {
		return json.Marshal(map[string]uint32{"applyExtrinsic": *p.ApplyExtrinsic})
	}
	return json.Marshal(p.String())
}

// EventRecord is one entry of System.Events. Event is the generic value of
// the runtime's event enum: a Variant named after the pallet wrapping a
// Variant named after the event.
type EventRecord struct {
	Phase  Phase
	Event  scale.Value
	Topics []Hash
}

// Name returns the pallet and event name, empty when Event is not a nested
// variant.
func (r *EventRecord) Name() (pallet, event string) {
	outer, ok := r.Event.(scale.Variant)
	if !ok {
		return "", ""
	}
	inner, ok := outer.Value.(scale.Variant)
	if !ok {
		return outer.Name, ""
	}
	return outer.Name, inner.Name
}

// Is reports whether the record is pallet.event.
func (r *EventRecord) Is(pallet, event string) bool {
	p, e := r.Name()
	return p == pallet && e == event
}

// Fields returns the payload of the event itself.
func (r *EventRecord) Fields() scale.Value {
	outer, ok := r.Event.(scale.Variant)
	if !ok {
		return nil
	}
	if inner, ok := outer.Value.(scale.Variant); ok {
		return inner.Value
	}
	return nil
}

func (r EventRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Phase  Phase  `json:"phase"`
		Event  any    `json:"event"`
		Topics []Hash `json:"topics"`
	}{r.Phase, scale.Pretty(r.Event), r.Topics})
}

// FilterExtrinsicEvents returns the records emitted while applying the
// extrinsic at index, in order.
func FilterExtrinsicEvents(records []EventRecord, index uint32) []EventRecord {
	var out []EventRecord
	for _, r := range records {
		if r.Phase.IsApplyExtrinsic(index) {
			out = append(out, r)
		}
	}
	return out
}

// DispatchError returns the dispatch_error of a System.ExtrinsicFailed event
// among records.
func DispatchError(records []EventRecord) (scale.Value, bool) {
	for i := range records {
		if !records[i].Is("System", "ExtrinsicFailed") {
			continue
		}
		if fields, ok := records[i].Fields().(map[string]scale.Value); ok {
			return fields["dispatch_error"], true
		}
		return records[i].Fields(), true
	}
	return nil, false
}
