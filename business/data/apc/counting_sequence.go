package apc

import (
	"fmt"
	"time"
)

// CountingSequence is one door, counting area and object class observation window reported by a device
type CountingSequence struct {
	DoorId         string    `json:"door_id"`
	CountingAreaId string    `json:"counting_area_id"`
	ObjectClass    string    `json:"object_class"`
	BeginTimestamp time.Time `json:"begin_timestamp"`
	EndTimestamp   time.Time `json:"end_timestamp"`
	CountIn        int       `json:"count_in"`
	CountOut       int       `json:"count_out"`
	DeviceId       string    `json:"device_id"`
}

// CountingSequenceKey identifies a CountingSequence inside a PassengerCountingEvent for merging
type CountingSequenceKey struct {
	CountingAreaId string
	DoorId         string
	ObjectClass    string
}

func (k CountingSequenceKey) String() string {
	return fmt.Sprintf("area %s/door %s/%s", k.CountingAreaId, k.DoorId, k.ObjectClass)
}

func (cs *CountingSequence) Key() CountingSequenceKey {
	return CountingSequenceKey{
		CountingAreaId: cs.CountingAreaId,
		DoorId:         cs.DoorId,
		ObjectClass:    cs.ObjectClass,
	}
}

// IsSentinel returns true if the CountingSequence is not bound to a specific door
func (cs *CountingSequence) IsSentinel() bool {
	return cs.DoorId == SentinelDoorId
}
