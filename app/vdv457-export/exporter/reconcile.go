package exporter

import (
	"fmt"
	"log"

	"github.com/sebastianknopf/VdvCountCore/business/counting"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

// TripResult is the reconciled passenger counting data of one trip, ready to be transformed by a Dialect
type TripResult struct {
	Key                  apc.TripKey                   `json:"key"`
	Trip                 *apc.Trip                     `json:"trip"`
	DayType              DayType                       `json:"day_type"`
	PrimaryDeviceId      string                        `json:"primary_device_id"`
	SecondaryDeviceIds   []string                      `json:"secondary_device_ids"`
	Events               []*apc.PassengerCountingEvent `json:"events"`
	Placeholders         int                           `json:"placeholders"`
	RepairedViolations   int                           `json:"repaired_violations"`
	UnresolvedViolations int                           `json:"unresolved_violations"`
}

// ReconcileTrip merges the rows of all devices of a trip, aligns them to the nominal stops of the trip and
// resolves events reported between stops.
// returns apc.ConflictingDeviceError if failOnDeviceConflict is set and two devices reported the same door
func ReconcileTrip(log *log.Logger,
	source Source,
	devices TripDevices,
	failOnDeviceConflict bool,
	calendar *DayTypeCalendar) (*TripResult, error) {

	log.Printf("Processing trip %d with vehicle %s at %d, primary device is %s", devices.Key.TripId,
		devices.Key.VehicleId, devices.Key.OperationDay, devices.PrimaryDeviceId)

	trip, err := source.Trip(devices.Key)
	if err != nil {
		return nil, fmt.Errorf("unable to load trip %s: %w", devices.Key, err)
	}

	primaryRows, err := source.CountingRows(devices.Key, devices.PrimaryDeviceId)
	if err != nil {
		return nil, err
	}
	collector, err := counting.NewCollector(log, devices.PrimaryDeviceId, primaryRows)
	if err != nil {
		return nil, err
	}
	for _, deviceId := range devices.SecondaryDeviceIds {
		rows, err := source.CountingRows(devices.Key, deviceId)
		if err != nil {
			return nil, err
		}
		if err = collector.Add(deviceId, rows, failOnDeviceConflict); err != nil {
			return nil, fmt.Errorf("unable to add device %s to trip %s: %w", deviceId, devices.Key, err)
		}
	}
	collector.Verify()

	extender, err := counting.NewExtender(log, trip)
	if err != nil {
		return nil, err
	}
	extended, report, err := extender.Extend(collector.Events())
	if err != nil {
		return nil, err
	}
	events, err := counting.ResolveUnmatchedEvents(log, trip, extended)
	if err != nil {
		return nil, err
	}
	log.Printf("Found total %d PCEs for trip %s", len(events), devices.Key)

	result := TripResult{
		Key:                  devices.Key,
		Trip:                 trip,
		DayType:              DayTypeWeekday,
		PrimaryDeviceId:      devices.PrimaryDeviceId,
		SecondaryDeviceIds:   devices.SecondaryDeviceIds,
		Events:               events,
		Placeholders:         report.Placeholders,
		RepairedViolations:   report.RepairedViolations,
		UnresolvedViolations: report.UnresolvedViolations,
	}
	if date, err := devices.Key.Date(); err == nil {
		result.DayType = calendar.DayType(date)
	} else {
		log.Printf("warning: unable to classify operation day %d. error: %v", devices.Key.OperationDay, err)
	}
	return &result, nil
}
