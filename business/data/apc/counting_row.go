package apc

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// CountingRow is one staged counting observation of one device: a counting sequence plus the fields of the
// passenger counting event it belongs to. Either the stop fields or AfterStopSequence are set.
type CountingRow struct {
	StopId              *int     `db:"stop_id" json:"stop_id" validate:"required_without=AfterStopSequence,excluded_with=AfterStopSequence"`
	StopParentId        *int     `db:"stop_parent_id" json:"stop_parent_id"`
	StopInternationalId *string  `db:"stop_international_id" json:"stop_international_id"`
	StopLatitude        *float64 `db:"stop_latitude" json:"stop_latitude"`
	StopLongitude       *float64 `db:"stop_longitude" json:"stop_longitude"`
	StopName            *string  `db:"stop_name" json:"stop_name"`
	StopSequence        *int     `db:"stop_sequence" json:"stop_sequence" validate:"required_with=StopId"`
	AfterStopSequence   *int     `db:"after_stop_sequence" json:"after_stop_sequence" validate:"omitempty,gte=0"`
	PceLatitude         float64  `db:"pce_latitude" json:"pce_latitude" validate:"latitude"`
	PceLongitude        float64  `db:"pce_longitude" json:"pce_longitude" validate:"longitude"`
	DoorId              string   `db:"door_id" json:"door_id" validate:"required"`
	CountingAreaId      string   `db:"counting_area_id" json:"counting_area_id" validate:"required"`
	ObjectClass         string   `db:"object_class" json:"object_class" validate:"required"`
	// BeginTimestamp and EndTimestamp are unix epoch seconds
	BeginTimestamp int64 `db:"begin_timestamp" json:"begin_timestamp" validate:"gt=0"`
	EndTimestamp   int64 `db:"end_timestamp" json:"end_timestamp" validate:"gtefield=BeginTimestamp"`
	In             int   `db:"count_in" json:"in" validate:"gte=0"`
	Out            int   `db:"count_out" json:"out" validate:"gte=0"`
}

var rowValidator = validator.New()

// Normalized returns a copy of the row with a negative AfterStopSequence cleared
func (r *CountingRow) Normalized() CountingRow {
	row := *r
	if row.AfterStopSequence != nil && *row.AfterStopSequence < 0 {
		row.AfterStopSequence = nil
	}
	return row
}

// Validate checks the row for required fields and consistent values, the row itself is not modified.
// A negative AfterStopSequence is treated as absent.
// returns RowValidationError with index for the first failing field
func (r *CountingRow) Validate(index int) error {
	row := r.Normalized()
	err := rowValidator.Struct(&row)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		return &RowValidationError{
			Index: index,
			Field: fieldError.Field(),
			Rule:  fieldError.Tag(),
			Param: fieldError.Param(),
		}
	}
	return err
}

// IsAnchored returns true if the row carries stop identity
func (r *CountingRow) IsAnchored() bool {
	return r.StopId != nil
}

// CountingSequence builds the CountingSequence observed in the row for deviceId
func (r *CountingRow) CountingSequence(deviceId string) *CountingSequence {
	return &CountingSequence{
		DoorId:         r.DoorId,
		CountingAreaId: r.CountingAreaId,
		ObjectClass:    r.ObjectClass,
		BeginTimestamp: r.Begin(),
		EndTimestamp:   time.Unix(r.EndTimestamp, 0).UTC(),
		CountIn:        r.In,
		CountOut:       r.Out,
		DeviceId:       deviceId,
	}
}

func (r *CountingRow) Begin() time.Time {
	return time.Unix(r.BeginTimestamp, 0).UTC()
}

// Stop builds the Stop of the row, nil if the row is not anchored
func (r *CountingRow) Stop() *Stop {
	if r.StopId == nil {
		return nil
	}
	stop := Stop{
		Id: *r.StopId,
	}
	if r.StopParentId != nil {
		stop.ParentId = *r.StopParentId
	}
	if r.StopInternationalId != nil {
		stop.InternationalId = *r.StopInternationalId
	}
	if r.StopLatitude != nil {
		stop.Latitude = *r.StopLatitude
	}
	if r.StopLongitude != nil {
		stop.Longitude = *r.StopLongitude
	}
	if r.StopName != nil {
		stop.Name = *r.StopName
	}
	if r.StopSequence != nil {
		stop.Sequence = *r.StopSequence
	}
	return &stop
}
