// Package apc provides the automatic passenger counting data model and staging database access
package apc

import (
	"fmt"
	"time"
)

// SentinelDoorId is the reserved door identifier meaning "no specific door". It is used by synthesized
// placeholder events and aggregate data.
const SentinelDoorId = "0"

// TripKey identifies one unit of reconciliation work: a trip driven by a vehicle on an operation day
type TripKey struct {
	// OperationDay is the service day in YYYYMMDD format
	OperationDay int    `db:"operation_day" json:"operation_day"`
	TripId       int    `db:"trip_id" json:"trip_id"`
	VehicleId    string `db:"vehicle_id" json:"vehicle_id"`
}

func (k TripKey) String() string {
	return fmt.Sprintf("O%d_T%d_%s", k.OperationDay, k.TripId, k.VehicleId)
}

// Date returns the operation day as midnight UTC
// returns error if OperationDay is not a valid YYYYMMDD value
func (k TripKey) Date() (time.Time, error) {
	return time.Parse("20060102", fmt.Sprintf("%08d", k.OperationDay))
}

// DeviceRowCount holds the number of staged counting rows a device reported for a trip
type DeviceRowCount struct {
	TripKey
	DeviceId string `db:"device_id" json:"device_id"`
	RowCount int    `db:"row_count" json:"row_count"`
}
