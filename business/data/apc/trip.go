package apc

import (
	"time"
)

// StopTime is the nominal arrival and departure of a Trip at a Stop.
// DepartureTime is nil at the final stop, ArrivalTime may be nil at the first stop.
type StopTime struct {
	Stop          *Stop      `json:"stop"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	DepartureTime *time.Time `json:"departure_time"`
}

// NominalTime returns the departure time, or the arrival time if the stop has no departure
// returns nil if neither is present
func (st *StopTime) NominalTime() *time.Time {
	if st.DepartureTime != nil {
		return st.DepartureTime
	}
	return st.ArrivalTime
}

// Trip is the nominal schedule of one vehicle journey. StopTimes are ordered by Stop.Sequence.
type Trip struct {
	Id              int         `json:"id"`
	OperationDay    int         `json:"operation_day"`
	VehicleId       string      `json:"vehicle_id"`
	Direction       int         `json:"direction"`
	Line            *Line       `json:"line"`
	InternationalId string      `json:"international_id,omitempty"`
	StopTimes       []*StopTime `json:"stop_times"`
}

// Validate checks that Trip contains the schedule data required to extend passenger counting events
// returns MissingScheduleDataError describing the first problem found
func (t *Trip) Validate() error {
	if t == nil {
		return &MissingScheduleDataError{Reason: "no trip"}
	}
	if len(t.StopTimes) == 0 {
		return &MissingScheduleDataError{TripId: t.Id, Reason: "trip has no stop times"}
	}
	lastSequence := 0
	for i, st := range t.StopTimes {
		if st == nil || st.Stop == nil {
			return &MissingScheduleDataError{TripId: t.Id, Reason: "stop time without stop", Position: i}
		}
		if st.NominalTime() == nil {
			return &MissingScheduleDataError{TripId: t.Id, Reason: "stop time without arrival and departure",
				Position: i}
		}
		if i > 0 && st.Stop.Sequence <= lastSequence {
			return &MissingScheduleDataError{TripId: t.Id, Reason: "stop sequence is not increasing", Position: i}
		}
		lastSequence = st.Stop.Sequence
	}
	return nil
}

func (t *Trip) FirstStopTime() *StopTime {
	if len(t.StopTimes) == 0 {
		return nil
	}
	return t.StopTimes[0]
}

func (t *Trip) LastStopTime() *StopTime {
	lastIndex := len(t.StopTimes) - 1
	if lastIndex < 0 {
		return nil
	}
	return t.StopTimes[lastIndex]
}

// StopTimeAfterSequence returns the first StopTime whose stop sequence is greater than sequence
// returns nil if the trip has no stop after sequence
func (t *Trip) StopTimeAfterSequence(sequence int) *StopTime {
	for _, st := range t.StopTimes {
		if st.Stop != nil && st.Stop.Sequence > sequence {
			return st
		}
	}
	return nil
}
