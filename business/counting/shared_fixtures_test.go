package counting

import (
	"log"
	"strings"
	"time"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "VDV457_EXPORT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// countLines returns the number of log lines containing substring
func (t *testLogWriter) countLines(substring string) int {
	count := 0
	for _, line := range t.logLines {
		if strings.Contains(line, substring) {
			count++
		}
	}
	return count
}

var fixtureBase = time.Date(2024, 10, 17, 8, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return fixtureBase.Add(time.Duration(seconds) * time.Second)
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func float64Ptr(f float64) *float64 {
	return &f
}

// makeTrip builds a trip with stopCount stops departing every two minutes starting at fixtureBase.
// Stop ids are 100 times the stop sequence, the last stop only has an arrival time.
func makeTrip(stopCount int) *apc.Trip {
	trip := apc.Trip{
		Id:           4711,
		OperationDay: 20241017,
		VehicleId:    "1004",
		Direction:    1,
		Line:         &apc.Line{Id: 42, Name: "42"},
		StopTimes:    make([]*apc.StopTime, 0, stopCount),
	}
	for sequence := 1; sequence <= stopCount; sequence++ {
		nominal := at((sequence - 1) * 120)
		stopTime := apc.StopTime{
			Stop: &apc.Stop{
				Id:        sequence * 100,
				ParentId:  sequence * 10,
				Latitude:  48.7 + float64(sequence)/1000,
				Longitude: 9.1,
				Name:      "Stop " + string(rune('A'+sequence-1)),
				Sequence:  sequence,
			},
		}
		if sequence > 1 {
			stopTime.ArrivalTime = &nominal
		}
		if sequence < stopCount {
			stopTime.DepartureTime = &nominal
		}
		trip.StopTimes = append(trip.StopTimes, &stopTime)
	}
	return &trip
}

// makeStopRow builds a counting row anchored to the stop with sequence of a trip built by makeTrip
func makeStopRow(sequence int, door string, begin int, end int, in int, out int) apc.CountingRow {
	return apc.CountingRow{
		StopId:         intPtr(sequence * 100),
		StopParentId:   intPtr(sequence * 10),
		StopLatitude:   float64Ptr(48.7 + float64(sequence)/1000),
		StopLongitude:  float64Ptr(9.1),
		StopName:       strPtr("Stop " + string(rune('A'+sequence-1))),
		StopSequence:   intPtr(sequence),
		PceLatitude:    48.7 + float64(sequence)/1000,
		PceLongitude:   9.1,
		DoorId:         door,
		CountingAreaId: "1",
		ObjectClass:    "Adult",
		BeginTimestamp: at(begin).Unix(),
		EndTimestamp:   at(end).Unix(),
		In:             in,
		Out:            out,
	}
}

// makeUnanchoredRow builds a counting row reported after the stop with sequence after
func makeUnanchoredRow(after int, door string, begin int, end int, in int, out int) apc.CountingRow {
	return apc.CountingRow{
		AfterStopSequence: intPtr(after),
		PceLatitude:       48.75,
		PceLongitude:      9.1,
		DoorId:            door,
		CountingAreaId:    "1",
		ObjectClass:       "Adult",
		BeginTimestamp:    at(begin).Unix(),
		EndTimestamp:      at(end).Unix(),
		In:                in,
		Out:               out,
	}
}

// makeEvent builds an event at stop sequence of a trip built by makeTrip with one counting sequence.
// A sequence of 0 or less yields an event without stop.
func makeEvent(sequence int, door string, begin int, end int, in int, out int, device string) *apc.PassengerCountingEvent {
	pce := apc.NewPassengerCountingEvent(device, 48.7, 9.1)
	if sequence > 0 {
		pce.Stop = &apc.Stop{Id: sequence * 100, ParentId: sequence * 10, Sequence: sequence}
	}
	pce.CountingSequences = append(pce.CountingSequences, &apc.CountingSequence{
		DoorId:         door,
		CountingAreaId: "1",
		ObjectClass:    "Adult",
		BeginTimestamp: at(begin),
		EndTimestamp:   at(end),
		CountIn:        in,
		CountOut:       out,
		DeviceId:       device,
	})
	return pce
}
