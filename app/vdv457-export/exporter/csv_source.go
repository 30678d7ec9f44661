package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

const (
	// CountingRowsFileName holds the staged counting rows of all devices
	CountingRowsFileName = "counting_rows.csv"
	// TripDetailsFileName holds one line per stop time of every trip
	TripDetailsFileName = "trip_details.csv"

	csvSeparator = ';'
)

// csvCountingRow is one line of CountingRowsFileName. Optional columns are read as strings and left empty
// when absent.
type csvCountingRow struct {
	OperationDay        int     `csv:"operation_day"`
	TripId              int     `csv:"trip_id"`
	VehicleId           string  `csv:"vehicle_id"`
	DeviceId            string  `csv:"device_id"`
	StopId              string  `csv:"stop_id"`
	StopParentId        string  `csv:"stop_parent_id"`
	StopInternationalId string  `csv:"stop_international_id"`
	StopLatitude        string  `csv:"stop_latitude"`
	StopLongitude       string  `csv:"stop_longitude"`
	StopName            string  `csv:"stop_name"`
	StopSequence        string  `csv:"stop_sequence"`
	AfterStopSequence   string  `csv:"after_stop_sequence"`
	PceLatitude         float64 `csv:"pce_latitude"`
	PceLongitude        float64 `csv:"pce_longitude"`
	DoorId              string  `csv:"door_id"`
	CountingAreaId      string  `csv:"counting_area_id"`
	ObjectClass         string  `csv:"object_class"`
	BeginTimestamp      int64   `csv:"begin_timestamp"`
	EndTimestamp        int64   `csv:"end_timestamp"`
	In                  int     `csv:"in"`
	Out                 int     `csv:"out"`
}

// csvTripDetail is one line of TripDetailsFileName
type csvTripDetail struct {
	OperationDay        int     `csv:"operation_day"`
	TripId              int     `csv:"trip_id"`
	Direction           int     `csv:"direction"`
	TripInternationalId string  `csv:"trip_international_id"`
	LineId              int     `csv:"line_id"`
	LineInternationalId string  `csv:"line_international_id"`
	LineName            string  `csv:"line_name"`
	StopId              int     `csv:"stop_id"`
	StopParentId        int     `csv:"stop_parent_id"`
	StopInternationalId string  `csv:"stop_international_id"`
	StopName            string  `csv:"stop_name"`
	StopLatitude        float64 `csv:"stop_latitude"`
	StopLongitude       float64 `csv:"stop_longitude"`
	StopSequence        int     `csv:"stop_sequence"`
	ArrivalTimestamp    string  `csv:"arrival_timestamp"`
	DepartureTimestamp  string  `csv:"departure_timestamp"`
}

type deviceRows struct {
	key      apc.TripKey
	deviceId string
}

type scheduleKey struct {
	operationDay int
	tripId       int
}

// CSVSource reads staged rows from a directory holding CountingRowsFileName and TripDetailsFileName
type CSVSource struct {
	dir         string
	rowCounts   []apc.DeviceRowCount
	rows        map[deviceRows][]apc.CountingRow
	tripDetails map[scheduleKey][]apc.TripDetail
}

// NewCSVSource loads both files of dir
// returns error if a file is missing or malformed
func NewCSVSource(dir string) (*CSVSource, error) {
	var countingRows []*csvCountingRow
	if err := readCSVFile(filepath.Join(dir, CountingRowsFileName), &countingRows); err != nil {
		return nil, err
	}
	var tripDetails []*csvTripDetail
	if err := readCSVFile(filepath.Join(dir, TripDetailsFileName), &tripDetails); err != nil {
		return nil, err
	}

	source := CSVSource{
		dir:         dir,
		rowCounts:   make([]apc.DeviceRowCount, 0),
		rows:        make(map[deviceRows][]apc.CountingRow),
		tripDetails: make(map[scheduleKey][]apc.TripDetail),
	}
	for i, line := range countingRows {
		row, err := line.countingRow()
		if err != nil {
			return nil, fmt.Errorf("unable to read line %d of %s: %w", i+2, CountingRowsFileName, err)
		}
		key := deviceRows{
			key:      apc.TripKey{OperationDay: line.OperationDay, TripId: line.TripId, VehicleId: line.VehicleId},
			deviceId: line.DeviceId,
		}
		source.rows[key] = append(source.rows[key], row)
	}
	for key, rows := range source.rows {
		source.rowCounts = append(source.rowCounts, apc.DeviceRowCount{
			TripKey:  key.key,
			DeviceId: key.deviceId,
			RowCount: len(rows),
		})
	}

	for i, line := range tripDetails {
		detail, err := line.tripDetail()
		if err != nil {
			return nil, fmt.Errorf("unable to read line %d of %s: %w", i+2, TripDetailsFileName, err)
		}
		key := scheduleKey{operationDay: line.OperationDay, tripId: line.TripId}
		source.tripDetails[key] = append(source.tripDetails[key], detail)
	}
	for _, details := range source.tripDetails {
		sort.SliceStable(details, func(i, j int) bool {
			return details[i].StopSequence < details[j].StopSequence
		})
	}
	return &source, nil
}

// readCSVFile unmarshalls the semicolon separated file at path into out
func readCSVFile(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	reader := csv.NewReader(file)
	reader.Comma = csvSeparator
	reader.TrimLeadingSpace = true
	if err = gocsv.UnmarshalCSV(reader, out); err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return nil
}

func (c *CSVSource) DeviceRowCounts() ([]apc.DeviceRowCount, error) {
	results := make([]apc.DeviceRowCount, len(c.rowCounts))
	copy(results, c.rowCounts)
	return results, nil
}

func (c *CSVSource) CountingRows(key apc.TripKey, deviceId string) ([]apc.CountingRow, error) {
	rows := c.rows[deviceRows{key: key, deviceId: deviceId}]
	results := make([]apc.CountingRow, len(rows))
	copy(results, rows)
	return results, nil
}

func (c *CSVSource) Trip(key apc.TripKey) (*apc.Trip, error) {
	return apc.BuildTrip(key, c.tripDetails[scheduleKey{operationDay: key.OperationDay, tripId: key.TripId}])
}

// Dir returns the directory the source was loaded from
func (c *CSVSource) Dir() string {
	return c.dir
}

func (r *csvCountingRow) countingRow() (apc.CountingRow, error) {
	row := apc.CountingRow{
		PceLatitude:    r.PceLatitude,
		PceLongitude:   r.PceLongitude,
		DoorId:         r.DoorId,
		CountingAreaId: r.CountingAreaId,
		ObjectClass:    r.ObjectClass,
		BeginTimestamp: r.BeginTimestamp,
		EndTimestamp:   r.EndTimestamp,
		In:             r.In,
		Out:            r.Out,
	}
	var err error
	if row.StopId, err = optionalInt("stop_id", r.StopId); err != nil {
		return row, err
	}
	if row.StopParentId, err = optionalInt("stop_parent_id", r.StopParentId); err != nil {
		return row, err
	}
	if row.StopSequence, err = optionalInt("stop_sequence", r.StopSequence); err != nil {
		return row, err
	}
	if row.AfterStopSequence, err = optionalInt("after_stop_sequence", r.AfterStopSequence); err != nil {
		return row, err
	}
	if row.StopLatitude, err = optionalFloat("stop_latitude", r.StopLatitude); err != nil {
		return row, err
	}
	if row.StopLongitude, err = optionalFloat("stop_longitude", r.StopLongitude); err != nil {
		return row, err
	}
	row.StopInternationalId = optionalString(r.StopInternationalId)
	row.StopName = optionalString(r.StopName)
	return row, nil
}

func (d *csvTripDetail) tripDetail() (apc.TripDetail, error) {
	detail := apc.TripDetail{
		OperationDay:        d.OperationDay,
		TripId:              d.TripId,
		Direction:           d.Direction,
		TripInternationalId: d.TripInternationalId,
		LineId:              d.LineId,
		LineInternationalId: d.LineInternationalId,
		LineName:            d.LineName,
		StopId:              d.StopId,
		StopParentId:        d.StopParentId,
		StopInternationalId: d.StopInternationalId,
		StopName:            d.StopName,
		StopLatitude:        d.StopLatitude,
		StopLongitude:       d.StopLongitude,
		StopSequence:        d.StopSequence,
	}
	var err error
	if detail.ArrivalTimestamp, err = optionalInt64("arrival_timestamp", d.ArrivalTimestamp); err != nil {
		return detail, err
	}
	if detail.DepartureTimestamp, err = optionalInt64("departure_timestamp", d.DepartureTimestamp); err != nil {
		return detail, err
	}
	return detail, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil
	}
	return &value
}

func optionalInt(column string, value string) (*int, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &result, nil
}

func optionalInt64(column string, value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil, nil
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &result, nil
}

func optionalFloat(column string, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &result, nil
}
