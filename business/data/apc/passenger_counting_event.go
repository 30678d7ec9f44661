package apc

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
)

// PassengerCountingEvent (PCE) is the passenger activity observed at one stop, or at one instant after a stop
// when the event is not yet anchored.
// Exactly one of Stop being set or AfterStopSequence >= 0 holds for extracted events.
type PassengerCountingEvent struct {
	// Latitude and Longitude are the observed position, which may differ from the nominal stop position
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// AfterStopSequence is -1 for anchored events
	AfterStopSequence int                 `json:"after_stop_sequence"`
	Stop              *Stop               `json:"stop,omitempty"`
	CountingSequences []*CountingSequence `json:"counting_sequences"`
	// DeviceId of the primary device of the event
	DeviceId string `json:"device_id"`
}

// NewPassengerCountingEvent makes an unanchored PassengerCountingEvent without counting sequences
func NewPassengerCountingEvent(deviceId string, latitude float64, longitude float64) *PassengerCountingEvent {
	return &PassengerCountingEvent{
		Latitude:          latitude,
		Longitude:         longitude,
		AfterStopSequence: -1,
		CountingSequences: make([]*CountingSequence, 0),
		DeviceId:          deviceId,
	}
}

// IsAnchored returns true if the event is bound to a stop
func (p *PassengerCountingEvent) IsAnchored() bool {
	return p.Stop != nil
}

// IsUnanchored returns true if the event is only known to have happened after a stop sequence
func (p *PassengerCountingEvent) IsUnanchored() bool {
	return p.Stop == nil && p.AfterStopSequence >= 0
}

// BeginTimestamp returns the earliest begin of all counting sequences, zero time if there are none
func (p *PassengerCountingEvent) BeginTimestamp() time.Time {
	var result time.Time
	for i, cs := range p.CountingSequences {
		if i == 0 || cs.BeginTimestamp.Before(result) {
			result = cs.BeginTimestamp
		}
	}
	return result
}

// EndTimestamp returns the latest end of all counting sequences, zero time if there are none
func (p *PassengerCountingEvent) EndTimestamp() time.Time {
	var result time.Time
	for i, cs := range p.CountingSequences {
		if i == 0 || cs.EndTimestamp.After(result) {
			result = cs.EndTimestamp
		}
	}
	return result
}

func (p *PassengerCountingEvent) CountIn() int {
	sum := 0
	for _, cs := range p.CountingSequences {
		sum += cs.CountIn
	}
	return sum
}

func (p *PassengerCountingEvent) CountOut() int {
	sum := 0
	for _, cs := range p.CountingSequences {
		sum += cs.CountOut
	}
	return sum
}

// IsRunThrough returns true for instantaneous doorless placeholder events
func (p *PassengerCountingEvent) IsRunThrough() bool {
	if len(p.CountingSequences) == 0 {
		return false
	}
	first := p.CountingSequences[0]
	return first.IsSentinel() && first.BeginTimestamp.Equal(first.EndTimestamp)
}

// IsFixed returns true if at least one counting sequence was reported for a real door
func (p *PassengerCountingEvent) IsFixed() bool {
	for _, cs := range p.CountingSequences {
		if !cs.IsSentinel() {
			return true
		}
	}
	return false
}

// CountingSequence returns the counting sequence stored under key, nil if absent
func (p *PassengerCountingEvent) CountingSequence(key CountingSequenceKey) *CountingSequence {
	for _, cs := range p.CountingSequences {
		if cs.Key() == key {
			return cs
		}
	}
	return nil
}

// IntersectOptions disables parts of the intersection test
type IntersectOptions struct {
	IgnorePosition bool
	IgnoreTime     bool
}

// Intersects returns true if p and other describe the same passenger activity and can be combined.
// Events intersect positionally when they share stop id and sequence, or the same after stop sequence.
// Events intersect temporally when their [begin, end] intervals overlap, run through placeholders always
// intersect each other temporally.
func (p *PassengerCountingEvent) Intersects(other *PassengerCountingEvent, options IntersectOptions) bool {
	if !options.IgnorePosition && !p.intersectsPosition(other) {
		return false
	}
	if !options.IgnoreTime && !p.intersectsTime(other) {
		return false
	}
	return true
}

func (p *PassengerCountingEvent) intersectsPosition(other *PassengerCountingEvent) bool {
	if p.Stop != nil && other.Stop != nil {
		return p.Stop.Id == other.Stop.Id && p.Stop.Sequence == other.Stop.Sequence
	}
	if p.Stop == nil && other.Stop == nil {
		return p.AfterStopSequence >= 0 && p.AfterStopSequence == other.AfterStopSequence
	}
	return false
}

func (p *PassengerCountingEvent) intersectsTime(other *PassengerCountingEvent) bool {
	if p.IsRunThrough() && other.IsRunThrough() {
		return true
	}
	return !p.BeginTimestamp().After(other.EndTimestamp()) && !other.BeginTimestamp().After(p.EndTimestamp())
}

// Combine merges the counting sequences of other into a copy of p and returns the copy, neither p nor other
// are modified. Counts of sequences sharing a CountingSequenceKey are summed and the merged sequence spans both
// time windows. If failOnDeviceConflict is set and such sequences were reported by different devices for a real
// door, ConflictingDeviceError is returned.
// Sentinel door sequences are dropped from the result as soon as real door sequences are present.
func (p *PassengerCountingEvent) Combine(other *PassengerCountingEvent,
	failOnDeviceConflict bool) (*PassengerCountingEvent, error) {

	result, err := p.Clone()
	if err != nil {
		return nil, err
	}
	for _, incoming := range other.CountingSequences {
		existing := result.CountingSequence(incoming.Key())
		if existing == nil {
			cs := *incoming
			result.CountingSequences = append(result.CountingSequences, &cs)
			continue
		}
		if failOnDeviceConflict && existing.DeviceId != incoming.DeviceId && !incoming.IsSentinel() {
			return nil, &ConflictingDeviceError{
				DoorId:           incoming.DoorId,
				CountingAreaId:   incoming.CountingAreaId,
				ObjectClass:      incoming.ObjectClass,
				Stop:             result.Position(),
				ExistingDeviceId: existing.DeviceId,
				IncomingDeviceId: incoming.DeviceId,
			}
		}
		existing.CountIn += incoming.CountIn
		existing.CountOut += incoming.CountOut
		if incoming.BeginTimestamp.Before(existing.BeginTimestamp) {
			existing.BeginTimestamp = incoming.BeginTimestamp
		}
		if incoming.EndTimestamp.After(existing.EndTimestamp) {
			existing.EndTimestamp = incoming.EndTimestamp
		}
	}
	result.discardSentinelSequences()
	return result, nil
}

// discardSentinelSequences removes sentinel door sequences if sequences of real doors exist
func (p *PassengerCountingEvent) discardSentinelSequences() {
	if !p.IsFixed() {
		return
	}
	kept := make([]*CountingSequence, 0, len(p.CountingSequences))
	for _, cs := range p.CountingSequences {
		if !cs.IsSentinel() {
			kept = append(kept, cs)
		}
	}
	p.CountingSequences = kept
}

// Shift returns a copy of p with every counting sequence moved by offset
func (p *PassengerCountingEvent) Shift(offset time.Duration) (*PassengerCountingEvent, error) {
	result, err := p.Clone()
	if err != nil {
		return nil, err
	}
	for _, cs := range result.CountingSequences {
		cs.BeginTimestamp = cs.BeginTimestamp.Add(offset)
		cs.EndTimestamp = cs.EndTimestamp.Add(offset)
	}
	return result, nil
}

// Clone returns a deep copy of p
func (p *PassengerCountingEvent) Clone() (*PassengerCountingEvent, error) {
	result := PassengerCountingEvent{}
	err := copier.CopyWithOption(&result, p, copier.Option{DeepCopy: true})
	if err != nil {
		return nil, fmt.Errorf("unable to copy passenger counting event %s: %w", p, err)
	}
	if result.CountingSequences == nil {
		result.CountingSequences = make([]*CountingSequence, 0)
	}
	return &result, nil
}

// Position describes where the event took place for logging
func (p *PassengerCountingEvent) Position() string {
	if p.Stop != nil {
		return fmt.Sprintf("stop %s", p.Stop)
	}
	if p.AfterStopSequence >= 0 {
		return fmt.Sprintf("after stop sequence %d", p.AfterStopSequence)
	}
	return "unknown position"
}

func (p *PassengerCountingEvent) String() string {
	return fmt.Sprintf("PCE at %s from %s to %s, in: %d, out: %d, %d counting sequences, device %s",
		p.Position(),
		p.BeginTimestamp().Format(time.RFC3339),
		p.EndTimestamp().Format(time.RFC3339),
		p.CountIn(),
		p.CountOut(),
		len(p.CountingSequences),
		p.DeviceId)
}
