package apc

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sebastianknopf/VdvCountCore/foundation/database"
)

// GetDeviceRowCounts retrieves the number of staged counting rows per trip and device
func GetDeviceRowCounts(db *sqlx.DB) ([]DeviceRowCount, error) {
	query := "select operation_day, trip_id, vehicle_id, device_id, count(*) as row_count " +
		"from counting_row " +
		"group by operation_day, trip_id, vehicle_id, device_id " +
		"order by operation_day, trip_id, vehicle_id, device_id"
	var results []DeviceRowCount
	err := db.Select(&results, query)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve device row counts from counting_row table. error: %w", err)
	}
	return results, nil
}

// GetCountingRows retrieves the staged counting rows of deviceId for the trip identified by key.
// Rows are returned in the order they were staged, which keeps the rows of one passenger counting event
// contiguous.
func GetCountingRows(db *sqlx.DB, key TripKey, deviceId string) ([]CountingRow, error) {
	statementString := "select stop_id, stop_parent_id, stop_international_id, stop_latitude, stop_longitude, " +
		"stop_name, stop_sequence, after_stop_sequence, pce_latitude, pce_longitude, door_id, counting_area_id, " +
		"object_class, begin_timestamp, end_timestamp, count_in, count_out " +
		"from counting_row " +
		"where operation_day = :operation_day and trip_id = :trip_id and vehicle_id = :vehicle_id " +
		"and device_id = :device_id " +
		"order by id"
	query, args, err := database.PrepareNamedQueryFromMap(statementString, db, map[string]interface{}{
		"operation_day": key.OperationDay,
		"trip_id":       key.TripId,
		"vehicle_id":    key.VehicleId,
		"device_id":     deviceId,
	})
	if err != nil {
		return nil, err
	}
	var rows []CountingRow
	err = db.Select(&rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve counting rows for %s device %s. error: %w", key, deviceId, err)
	}
	return rows, nil
}

// TripDetail is one stop time of a trip joined with its trip, line and stop
type TripDetail struct {
	OperationDay        int     `db:"operation_day"`
	TripId              int     `db:"trip_id"`
	Direction           int     `db:"direction"`
	TripInternationalId string  `db:"trip_international_id"`
	LineId              int     `db:"line_id"`
	LineInternationalId string  `db:"line_international_id"`
	LineName            string  `db:"line_name"`
	StopId              int     `db:"stop_id"`
	StopParentId        int     `db:"stop_parent_id"`
	StopInternationalId string  `db:"stop_international_id"`
	StopName            string  `db:"stop_name"`
	StopLatitude        float64 `db:"stop_latitude"`
	StopLongitude       float64 `db:"stop_longitude"`
	StopSequence        int     `db:"stop_sequence"`
	// ArrivalTimestamp and DepartureTimestamp are unix epoch seconds
	ArrivalTimestamp   *int64 `db:"arrival_timestamp"`
	DepartureTimestamp *int64 `db:"departure_timestamp"`
}

// GetTrip retrieves the nominal schedule of the trip identified by key
// returns MissingScheduleDataError if the trip has no stop times
func GetTrip(db *sqlx.DB, key TripKey) (*Trip, error) {
	statementString := "select trip.operation_day, trip.trip_id, trip.direction, " +
		"coalesce(trip.international_id, '') as trip_international_id, " +
		"line.line_id, coalesce(line.international_id, '') as line_international_id, line.name as line_name, " +
		"stop.stop_id, stop.parent_id as stop_parent_id, " +
		"coalesce(stop.international_id, '') as stop_international_id, stop.name as stop_name, " +
		"stop.latitude as stop_latitude, stop.longitude as stop_longitude, stop_time.sequence as stop_sequence, " +
		"stop_time.arrival_timestamp, stop_time.departure_timestamp " +
		"from trip " +
		"join line on line.id = trip.line_id " +
		"join stop_time on stop_time.trip_id = trip.id " +
		"join stop on stop.id = stop_time.stop_id " +
		"where trip.operation_day = :operation_day and trip.trip_id = :trip_id " +
		"order by stop_time.sequence"
	query, args, err := database.PrepareNamedQueryFromMap(statementString, db, map[string]interface{}{
		"operation_day": key.OperationDay,
		"trip_id":       key.TripId,
	})
	if err != nil {
		return nil, err
	}
	var details []TripDetail
	err = db.Select(&details, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trip details for %s. error: %w", key, err)
	}
	return BuildTrip(key, details)
}

// BuildTrip assembles a Trip from TripDetail rows ordered by stop sequence
// returns MissingScheduleDataError if details is empty
func BuildTrip(key TripKey, details []TripDetail) (*Trip, error) {
	if len(details) == 0 {
		return nil, &MissingScheduleDataError{TripId: key.TripId, Reason: "no trip details found"}
	}
	first := details[0]
	trip := Trip{
		Id:           first.TripId,
		OperationDay: first.OperationDay,
		VehicleId:    key.VehicleId,
		Direction:    first.Direction,
		Line: &Line{
			Id:              first.LineId,
			InternationalId: first.LineInternationalId,
			Name:            first.LineName,
		},
		InternationalId: first.TripInternationalId,
		StopTimes:       make([]*StopTime, 0, len(details)),
	}
	for _, detail := range details {
		trip.StopTimes = append(trip.StopTimes, &StopTime{
			Stop: &Stop{
				Id:              detail.StopId,
				ParentId:        detail.StopParentId,
				InternationalId: detail.StopInternationalId,
				Latitude:        detail.StopLatitude,
				Longitude:       detail.StopLongitude,
				Name:            detail.StopName,
				Sequence:        detail.StopSequence,
			},
			ArrivalTime:   unixTimePointer(detail.ArrivalTimestamp),
			DepartureTime: unixTimePointer(detail.DepartureTimestamp),
		})
	}
	return &trip, nil
}

func unixTimePointer(seconds *int64) *time.Time {
	if seconds == nil {
		return nil
	}
	result := time.Unix(*seconds, 0).UTC()
	return &result
}
