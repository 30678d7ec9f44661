package apc

import "fmt"

// ConflictingDeviceError is returned when two devices report the same door, counting area and object class
// for the same passenger counting event. A trip failing with this error needs manual review.
type ConflictingDeviceError struct {
	DoorId           string
	CountingAreaId   string
	ObjectClass      string
	Stop             string
	ExistingDeviceId string
	IncomingDeviceId string
}

func (c *ConflictingDeviceError) Error() string {
	return fmt.Sprintf("door %s in counting area %s (object class %s) at %s reported by device %s "+
		"and device %s", c.DoorId, c.CountingAreaId, c.ObjectClass, c.Stop, c.ExistingDeviceId, c.IncomingDeviceId)
}

// MissingScheduleDataError is returned when a Trip lacks the schedule data needed for extension
type MissingScheduleDataError struct {
	TripId   int
	Reason   string
	Position int
}

func (m *MissingScheduleDataError) Error() string {
	return fmt.Sprintf("incomplete schedule for trip %d at stop time %d: %s", m.TripId, m.Position, m.Reason)
}

// RowValidationError is returned when a staged CountingRow fails validation
type RowValidationError struct {
	// Index is the position of the row in its input
	Index int
	Field string
	Rule  string
	Param string
}

func (r *RowValidationError) Error() string {
	if len(r.Param) > 0 {
		return fmt.Sprintf("invalid counting row %d: field %s failed rule %s=%s", r.Index, r.Field, r.Rule, r.Param)
	}
	return fmt.Sprintf("invalid counting row %d: field %s failed rule %s", r.Index, r.Field, r.Rule)
}
