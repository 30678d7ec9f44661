// Package counting reconciles passenger counting events reported by several devices of one vehicle trip into one
// ordered sequence of events, one per nominal stop.
package counting

import (
	"fmt"
	"log"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

// Collector merges the passenger counting events of a primary device with the events of secondary devices
type Collector struct {
	log    *log.Logger
	events []*apc.PassengerCountingEvent
}

// NewCollector creates Collector from the counting rows of the primary device
// returns RowValidationError if any row is malformed
func NewCollector(log *log.Logger, deviceId string, rows []apc.CountingRow) (*Collector, error) {
	events, err := ExtractEvents(deviceId, rows)
	if err != nil {
		return nil, fmt.Errorf("unable to extract events of primary device %s: %w", deviceId, err)
	}
	log.Printf("Initializing collector with %d PCEs of primary device %s", len(events), deviceId)
	return &Collector{
		log:    log,
		events: events,
	}, nil
}

// ExtractEvents builds passenger counting events from rows of one device in a single pass.
// Rows of one event must be contiguous: a row joins the current event if it carries the same stop id, or if
// neither the row nor the event is anchored and the row begins at the event's begin timestamp.
// Input that is not grouped this way is not re-sorted and results in fragmented events.
func ExtractEvents(deviceId string, rows []apc.CountingRow) ([]*apc.PassengerCountingEvent, error) {
	results := make([]*apc.PassengerCountingEvent, 0)

	var pce *apc.PassengerCountingEvent
	for i := range rows {
		row := &rows[i]
		if err := row.Validate(i); err != nil {
			return nil, err
		}

		if pce != nil && belongsToEvent(row, pce) {
			pce.CountingSequences = append(pce.CountingSequences, row.CountingSequence(deviceId))
			continue
		}

		if pce != nil {
			results = append(results, pce)
		}
		pce = apc.NewPassengerCountingEvent(deviceId, row.PceLatitude, row.PceLongitude)
		pce.CountingSequences = append(pce.CountingSequences, row.CountingSequence(deviceId))
		if row.IsAnchored() {
			pce.Stop = row.Stop()
		} else {
			pce.AfterStopSequence = *row.AfterStopSequence
		}
	}

	if pce != nil {
		results = append(results, pce)
	}
	return results, nil
}

// belongsToEvent returns true if row continues the counting sequences of pce
func belongsToEvent(row *apc.CountingRow, pce *apc.PassengerCountingEvent) bool {
	if row.IsAnchored() {
		return pce.Stop != nil && pce.Stop.Id == *row.StopId
	}
	return pce.Stop == nil && pce.BeginTimestamp().Equal(row.Begin())
}

// Add extracts the events of a secondary device and merges them into the collected events.
// Each secondary event is combined with the first collected event it intersects, or appended if there is none.
// Afterwards adjacent intersecting events are combined until no more merges happen.
// If an error is returned the collected events are left unchanged.
func (c *Collector) Add(deviceId string, rows []apc.CountingRow, failOnDeviceConflict bool) error {
	secondaryEvents, err := ExtractEvents(deviceId, rows)
	if err != nil {
		return fmt.Errorf("unable to extract events of secondary device %s: %w", deviceId, err)
	}
	c.log.Printf("Combining %d secondary PCEs of device %s with %d existing PCEs", len(secondaryEvents),
		deviceId, len(c.events))

	merged := make([]*apc.PassengerCountingEvent, len(c.events), len(c.events)+len(secondaryEvents))
	copy(merged, c.events)

	for _, secondary := range secondaryEvents {
		combined := false
		for i, existing := range merged {
			if !existing.Intersects(secondary, apc.IntersectOptions{}) {
				continue
			}
			result, err := existing.Combine(secondary, failOnDeviceConflict)
			if err != nil {
				return err
			}
			merged[i] = result
			combined = true
			c.log.Printf("Combined secondary %s with existing PCE", secondary)
			break
		}
		if !combined {
			c.log.Printf("No existing PCE for secondary %s, adding it", secondary)
			merged = append(merged, secondary)
		}
	}

	consolidated, err := consolidate(merged, failOnDeviceConflict)
	if err != nil {
		return err
	}
	c.events = consolidated
	return nil
}

// consolidate sweeps events left to right combining each event with its intersecting predecessor, carrying
// merges forward. Sweeps are repeated until one completes without merging.
func consolidate(events []*apc.PassengerCountingEvent,
	failOnDeviceConflict bool) ([]*apc.PassengerCountingEvent, error) {
	for {
		swept, merges, err := sweep(events, failOnDeviceConflict)
		if err != nil {
			return nil, err
		}
		if merges == 0 {
			return swept, nil
		}
		events = swept
	}
}

func sweep(events []*apc.PassengerCountingEvent,
	failOnDeviceConflict bool) ([]*apc.PassengerCountingEvent, int, error) {
	results := make([]*apc.PassengerCountingEvent, 0, len(events))
	merges := 0
	for _, event := range events {
		last := len(results) - 1
		if last >= 0 && results[last].Intersects(event, apc.IntersectOptions{}) {
			combined, err := results[last].Combine(event, failOnDeviceConflict)
			if err != nil {
				return nil, 0, err
			}
			results[last] = combined
			merges++
			continue
		}
		results = append(results, event)
	}
	return results, merges, nil
}

// Verify logs all collected events and warns about adjacent events overlapping in time.
// It also logs how far each anchored event was observed from its nominal stop position.
func (c *Collector) Verify() {
	c.log.Printf("Found following %d PCEs ...", len(c.events))
	for i, pce := range c.events {
		if distance, ok := pce.DistanceFromStop(); ok {
			c.log.Printf("%d. %s, observed %.0fm from stop", i+1, pce, distance)
		} else {
			c.log.Printf("%d. %s", i+1, pce)
		}
	}

	for p := 1; p < len(c.events); p++ {
		this := c.events[p]
		last := c.events[p-1]
		begin := this.BeginTimestamp()
		if !begin.Before(last.BeginTimestamp()) && !begin.After(last.EndTimestamp()) {
			c.log.Printf("warning: %d. PCE overlaps %d. PCE in time and remains at a different position",
				p+1, p)
		}
	}
}

// Events returns the collected events
func (c *Collector) Events() []*apc.PassengerCountingEvent {
	results := make([]*apc.PassengerCountingEvent, len(c.events))
	copy(results, c.events)
	return results
}
