package counting

import (
	"log"
	"sort"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

// groupKey groups events by the stop they are anchored to. Events that could not be anchored keep their
// after stop sequence and are grouped apart from anchored ones.
type groupKey struct {
	anchored bool
	sequence int
}

// ResolveUnmatchedEvents anchors every event reported after a stop sequence to the next stop of trip, or to the
// last stop if there is none, then combines events sharing a stop. Run through placeholders are dropped from a group as long as another event
// remains. Device conflicts are not checked, several devices reporting the same stop is expected here.
// returns the events ordered by end timestamp
func ResolveUnmatchedEvents(log *log.Logger, trip *apc.Trip,
	events []*apc.PassengerCountingEvent) ([]*apc.PassengerCountingEvent, error) {

	groups := make(map[groupKey][]*apc.PassengerCountingEvent)
	order := make([]groupKey, 0)

	for _, pce := range events {
		resolved, err := promote(log, trip, pce)
		if err != nil {
			return nil, err
		}
		key := groupKey{anchored: resolved.Stop != nil, sequence: resolved.AfterStopSequence}
		if resolved.Stop != nil {
			key.sequence = resolved.Stop.Sequence
		}
		if _, present := groups[key]; !present {
			order = append(order, key)
		}
		groups[key] = append(groups[key], resolved)
	}

	results := make([]*apc.PassengerCountingEvent, 0, len(order))
	for _, key := range order {
		folded, err := fold(groups[key])
		if err != nil {
			return nil, err
		}
		results = append(results, folded)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].EndTimestamp().Before(results[j].EndTimestamp())
	})
	return results, nil
}

// promote anchors an unanchored event to the stop following its after stop sequence, events reported after the
// last stop are assigned to the last stop
// returns pce unchanged if it is anchored or trip has no stops
func promote(log *log.Logger, trip *apc.Trip, pce *apc.PassengerCountingEvent) (*apc.PassengerCountingEvent, error) {
	if !pce.IsUnanchored() {
		return pce, nil
	}
	stopTime := trip.StopTimeAfterSequence(pce.AfterStopSequence)
	if stopTime == nil {
		stopTime = trip.LastStopTime()
		if stopTime == nil || stopTime.Stop == nil {
			log.Printf("warning: trip %d has no stops for %s, leaving it unanchored", trip.Id, pce)
			return pce, nil
		}
		log.Printf("warning: no stop after sequence %d on trip %d for %s, assigning it to the last stop",
			pce.AfterStopSequence, trip.Id, pce)
	}
	promoted, err := pce.Clone()
	if err != nil {
		return nil, err
	}
	stop := *stopTime.Stop
	promoted.Stop = &stop
	promoted.AfterStopSequence = -1
	log.Printf("Promoted PCE after stop sequence %d to %s", pce.AfterStopSequence, stop)
	return promoted, nil
}

// fold combines all events of a group into one, ignoring placeholders if real events are present
func fold(group []*apc.PassengerCountingEvent) (*apc.PassengerCountingEvent, error) {
	if len(group) == 1 {
		return group[0], nil
	}
	kept := make([]*apc.PassengerCountingEvent, 0, len(group))
	for _, pce := range group {
		if !pce.IsRunThrough() {
			kept = append(kept, pce)
		}
	}
	if len(kept) == 0 {
		kept = group
	}

	result := kept[0]
	for _, pce := range kept[1:] {
		combined, err := result.Combine(pce, false)
		if err != nil {
			return nil, err
		}
		result = combined
	}
	return result, nil
}
