package exporter

import (
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

// Source provides the staged counting rows and nominal schedule of trips
type Source interface {
	// DeviceRowCounts returns the number of staged rows per trip and device
	DeviceRowCounts() ([]apc.DeviceRowCount, error)
	// CountingRows returns the rows of one device for a trip in staging order
	CountingRows(key apc.TripKey, deviceId string) ([]apc.CountingRow, error)
	// Trip returns the nominal schedule of a trip
	Trip(key apc.TripKey) (*apc.Trip, error)
}

// TripDevices lists the devices that reported rows for one trip
type TripDevices struct {
	Key                apc.TripKey `json:"key"`
	PrimaryDeviceId    string      `json:"primary_device_id"`
	SecondaryDeviceIds []string    `json:"secondary_device_ids"`
}

// GroupTripDevices selects the primary device of every trip: the device with the most rows, ties going to the
// lexically smallest device id. All other devices are secondary devices in lexical order.
// returns trips ordered by operation day, trip id and vehicle id
func GroupTripDevices(counts []apc.DeviceRowCount) []TripDevices {
	byKey := make(map[apc.TripKey][]apc.DeviceRowCount)
	keys := make([]apc.TripKey, 0)
	for _, count := range counts {
		if _, present := byKey[count.TripKey]; !present {
			keys = append(keys, count.TripKey)
		}
		byKey[count.TripKey] = append(byKey[count.TripKey], count)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessTripKey(keys[i], keys[j])
	})

	results := make([]TripDevices, 0, len(keys))
	for _, key := range keys {
		devices := byKey[key]
		sort.Slice(devices, func(i, j int) bool {
			return devices[i].DeviceId < devices[j].DeviceId
		})
		primary := 0
		for i, device := range devices {
			if device.RowCount > devices[primary].RowCount {
				primary = i
			}
		}
		tripDevices := TripDevices{
			Key:                key,
			PrimaryDeviceId:    devices[primary].DeviceId,
			SecondaryDeviceIds: make([]string, 0, len(devices)-1),
		}
		for i, device := range devices {
			if i != primary {
				tripDevices.SecondaryDeviceIds = append(tripDevices.SecondaryDeviceIds, device.DeviceId)
			}
		}
		results = append(results, tripDevices)
	}
	return results
}

// PostgresSource reads staged rows from the staging database
type PostgresSource struct {
	db *sqlx.DB
}

// NewPostgresSource creates a Source backed by the staging tables of db
func NewPostgresSource(db *sqlx.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (p *PostgresSource) DeviceRowCounts() ([]apc.DeviceRowCount, error) {
	return apc.GetDeviceRowCounts(p.db)
}

func (p *PostgresSource) CountingRows(key apc.TripKey, deviceId string) ([]apc.CountingRow, error) {
	return apc.GetCountingRows(p.db, key, deviceId)
}

func (p *PostgresSource) Trip(key apc.TripKey) (*apc.Trip, error) {
	return apc.GetTrip(p.db, key)
}
