package counting

import (
	"log"
	"sort"
	"time"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

const (
	// MaxTemporalRepair is the largest ordering violation between two adjacent events that will be repaired
	MaxTemporalRepair = 30 * time.Minute

	// TemporalRepairEpsilon is added to every shift so repaired events no longer touch
	TemporalRepairEpsilon = 10 * time.Second

	placeholderCountingAreaId = "1"
	placeholderObjectClass    = "Adult"
)

// ExtendReport summarizes the changes Extender made to a list of events
type ExtendReport struct {
	Placeholders         int `json:"placeholders"`
	RepairedViolations   int `json:"repaired_violations"`
	UnresolvedViolations int `json:"unresolved_violations"`
}

// Extender aligns passenger counting events to every nominal stop of a Trip
type Extender struct {
	log  *log.Logger
	trip *apc.Trip
}

// NewExtender creates Extender for trip
// returns MissingScheduleDataError if trip is incomplete
func NewExtender(log *log.Logger, trip *apc.Trip) (*Extender, error) {
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	return &Extender{
		log:  log,
		trip: trip,
	}, nil
}

// Extend fills in placeholders for stops without events, sorts the events along the trip and repairs their
// temporal order
func (e *Extender) Extend(events []*apc.PassengerCountingEvent) ([]*apc.PassengerCountingEvent, ExtendReport, error) {
	report := ExtendReport{}

	filled, placeholders := e.FillGaps(events)
	report.Placeholders = placeholders

	repaired, repairedCount, unresolvedCount, err := e.RepairTemporalOrder(filled)
	if err != nil {
		return nil, report, err
	}
	report.RepairedViolations = repairedCount
	report.UnresolvedViolations = unresolvedCount
	return repaired, report, nil
}

// FillGaps adds a run through placeholder for every stop time without an anchored event and sorts the result
// by stop sequence. Unanchored events sort directly after the stop they were reported after.
// returns the sorted events and the number of placeholders added
func (e *Extender) FillGaps(events []*apc.PassengerCountingEvent) ([]*apc.PassengerCountingEvent, int) {
	results := make([]*apc.PassengerCountingEvent, len(events), len(events)+len(e.trip.StopTimes))
	copy(results, events)

	placeholders := 0
	for _, stopTime := range e.trip.StopTimes {
		if hasEventAtStop(events, stopTime.Stop) {
			continue
		}
		results = append(results, makePlaceholder(stopTime))
		placeholders++
	}

	sort.SliceStable(results, func(i, j int) bool {
		iSequence, iUnanchored := sortPosition(results[i])
		jSequence, jUnanchored := sortPosition(results[j])
		if iSequence != jSequence {
			return iSequence < jSequence
		}
		return !iUnanchored && jUnanchored
	})

	e.log.Printf("Added %d placeholder PCEs for %d stops of trip %d", placeholders, len(e.trip.StopTimes),
		e.trip.Id)
	return results, placeholders
}

func hasEventAtStop(events []*apc.PassengerCountingEvent, stop *apc.Stop) bool {
	for _, pce := range events {
		if pce.Stop != nil && pce.Stop.Id == stop.Id && pce.Stop.Sequence == stop.Sequence {
			return true
		}
	}
	return false
}

// sortPosition returns the sequence an event sorts by and whether it is unanchored
func sortPosition(pce *apc.PassengerCountingEvent) (int, bool) {
	if pce.Stop != nil {
		return pce.Stop.Sequence, false
	}
	return pce.AfterStopSequence, true
}

// makePlaceholder builds an empty run through event at the nominal position and time of stopTime
func makePlaceholder(stopTime *apc.StopTime) *apc.PassengerCountingEvent {
	stop := *stopTime.Stop
	at := *stopTime.NominalTime()

	pce := apc.NewPassengerCountingEvent("", stop.Latitude, stop.Longitude)
	pce.Stop = &stop
	pce.CountingSequences = append(pce.CountingSequences, &apc.CountingSequence{
		DoorId:         apc.SentinelDoorId,
		CountingAreaId: placeholderCountingAreaId,
		ObjectClass:    placeholderObjectClass,
		BeginTimestamp: at,
		EndTimestamp:   at,
	})
	return pce
}

// RepairTemporalOrder walks adjacent events and repairs events beginning before their predecessor ended.
// Violations larger than MaxTemporalRepair are logged and left untouched. Otherwise, if the later event is fixed
// the earlier event is moved back, unless it is fixed as well or moving it would overlap its own predecessor, in
// which case the violation stays unresolved.
// If the later event is not fixed it is moved forward. Events are moved by the violation plus
// TemporalRepairEpsilon, all counting sequences of a moved event keep their relative times.
// returns the repaired events, the number of repaired and the number of unresolved violations
func (e *Extender) RepairTemporalOrder(
	events []*apc.PassengerCountingEvent) ([]*apc.PassengerCountingEvent, int, int, error) {

	results := make([]*apc.PassengerCountingEvent, len(events))
	copy(results, events)

	repaired := 0
	unresolved := 0
	for p := 1; p < len(results); p++ {
		earlier := results[p-1]
		later := results[p]

		if !later.BeginTimestamp().Before(earlier.EndTimestamp()) {
			continue
		}
		delta := earlier.EndTimestamp().Sub(later.BeginTimestamp())
		if delta > MaxTemporalRepair {
			e.log.Printf("warning: %d. PCE begins %s before %d. PCE ends, exceeding %s, leaving it unresolved",
				p+1, delta, p, MaxTemporalRepair)
			unresolved++
			continue
		}

		offset := delta + TemporalRepairEpsilon
		if later.IsFixed() {
			if earlier.IsFixed() {
				e.log.Printf("warning: %d. PCE begins %s before %d. PCE ends, both are fixed, leaving it unresolved",
					p+1, delta, p)
				unresolved++
				continue
			}
			shifted, err := earlier.Shift(-offset)
			if err != nil {
				return nil, repaired, unresolved, err
			}
			if p >= 2 && shifted.BeginTimestamp().Before(results[p-2].EndTimestamp()) {
				e.log.Printf("warning: moving %d. PCE back by %s overlaps %d. PCE, leaving it unresolved",
					p, offset, p-1)
				unresolved++
				continue
			}
			results[p-1] = shifted
			e.log.Printf("Moved %d. PCE back by %s", p, offset)
		} else {
			shifted, err := later.Shift(offset)
			if err != nil {
				return nil, repaired, unresolved, err
			}
			results[p] = shifted
			e.log.Printf("Moved %d. PCE forward by %s", p+1, offset)
		}
		repaired++
	}
	return results, repaired, unresolved, nil
}
