package counting

import (
	"testing"

	"github.com/matryer/is"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

func TestResolveUnmatchedEvents_promotesToNextStop(t *testing.T) {
	is := is.New(t)
	trip := makeTrip(5)
	unanchored := makeEvent(-1, "1", 250, 260, 3, 1, "devA")
	unanchored.AfterStopSequence = 2

	resolved, err := ResolveUnmatchedEvents(makeTestLogWriter().log, trip, []*apc.PassengerCountingEvent{unanchored})
	is.NoErr(err)
	is.Equal(len(resolved), 1)
	is.True(resolved[0].IsAnchored())
	is.Equal(resolved[0].Stop.Sequence, 3)
	is.Equal(resolved[0].Stop.Id, 300)
	is.Equal(resolved[0].AfterStopSequence, -1)
	is.Equal(resolved[0].CountIn(), 3)

	// input stays unanchored
	is.True(unanchored.IsUnanchored())
}

func TestResolveUnmatchedEvents_afterLastStop(t *testing.T) {
	tests := []struct {
		name       string
		lastEvent  *apc.PassengerCountingEvent
		wantEvents int
		wantIn     int
		wantOut    int
	}{
		{
			name:       "joins reported last stop",
			lastEvent:  makeEvent(2, "1", 120, 140, 1, 2, "devA"),
			wantEvents: 2,
			wantIn:     4,
			wantOut:    3,
		},
		{
			name:       "replaces last stop placeholder",
			lastEvent:  makeEvent(2, "0", 120, 120, 0, 0, ""),
			wantEvents: 2,
			wantIn:     3,
			wantOut:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			logWriter := makeTestLogWriter()
			unanchored := makeEvent(-1, "2", 150, 160, 3, 1, "devA")
			unanchored.AfterStopSequence = 2
			events := []*apc.PassengerCountingEvent{
				makeEvent(1, "1", 0, 20, 1, 0, "devA"),
				tt.lastEvent,
				unanchored,
			}

			resolved, err := ResolveUnmatchedEvents(logWriter.log, makeTrip(2), events)
			is.NoErr(err)
			is.Equal(len(resolved), tt.wantEvents)
			last := resolved[len(resolved)-1]
			is.True(last.IsAnchored())
			is.Equal(last.Stop.Sequence, 2)
			is.Equal(last.Stop.Id, 200)
			is.Equal(last.CountIn(), tt.wantIn)
			is.Equal(last.CountOut(), tt.wantOut)
			for _, pce := range resolved {
				is.True(!pce.IsUnanchored())
			}
			is.Equal(logWriter.countLines("warning: no stop after sequence 2"), 1)
		})
	}
}

func TestResolveUnmatchedEvents_groups(t *testing.T) {
	tests := []struct {
		name         string
		events       func() []*apc.PassengerCountingEvent
		wantSequence []int
		wantIn       []int
		wantDoors    []int
	}{
		{
			name: "placeholder dropped for promoted event",
			events: func() []*apc.PassengerCountingEvent {
				promoted := makeEvent(-1, "1", 250, 260, 3, 1, "devA")
				promoted.AfterStopSequence = 2
				return []*apc.PassengerCountingEvent{
					makeEvent(2, "1", 120, 140, 1, 0, "devA"),
					promoted,
					makeEvent(3, "0", 240, 240, 0, 0, ""),
				}
			},
			wantSequence: []int{2, 3},
			wantIn:       []int{1, 3},
			wantDoors:    []int{1, 1},
		},
		{
			name: "placeholders only",
			events: func() []*apc.PassengerCountingEvent {
				return []*apc.PassengerCountingEvent{
					makeEvent(1, "0", 0, 0, 0, 0, ""),
					makeEvent(1, "0", 10, 10, 0, 0, ""),
				}
			},
			wantSequence: []int{1},
			wantIn:       []int{0},
			wantDoors:    []int{1},
		},
		{
			name: "same door of several devices combined without conflict",
			events: func() []*apc.PassengerCountingEvent {
				promoted := makeEvent(-1, "1", 250, 270, 2, 2, "devB")
				promoted.AfterStopSequence = 2
				return []*apc.PassengerCountingEvent{
					makeEvent(3, "1", 240, 260, 1, 0, "devA"),
					promoted,
				}
			},
			wantSequence: []int{3},
			wantIn:       []int{3},
			wantDoors:    []int{1},
		},
		{
			name: "ordered by end timestamp",
			events: func() []*apc.PassengerCountingEvent {
				return []*apc.PassengerCountingEvent{
					makeEvent(2, "1", 120, 300, 1, 0, "devA"),
					makeEvent(3, "1", 240, 260, 2, 0, "devA"),
				}
			},
			wantSequence: []int{3, 2},
			wantIn:       []int{2, 1},
			wantDoors:    []int{1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			resolved, err := ResolveUnmatchedEvents(makeTestLogWriter().log, makeTrip(5), tt.events())
			is.NoErr(err)
			is.Equal(len(resolved), len(tt.wantSequence))
			for i, pce := range resolved {
				is.Equal(pce.Stop.Sequence, tt.wantSequence[i])
				is.Equal(pce.CountIn(), tt.wantIn[i])
				is.Equal(len(pce.CountingSequences), tt.wantDoors[i])
			}
		})
	}
}
