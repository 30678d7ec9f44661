package apc

import "fmt"

// Stop is a platform level stop as served by one specific trip.
// Sequence is the 1-based position of the stop within the trip's nominal route.
type Stop struct {
	Id              int     `db:"stop_id" json:"id"`
	ParentId        int     `db:"stop_parent_id" json:"parent_id"`
	InternationalId string  `db:"stop_international_id" json:"international_id,omitempty"`
	Latitude        float64 `db:"stop_latitude" json:"latitude"`
	Longitude       float64 `db:"stop_longitude" json:"longitude"`
	Name            string  `db:"stop_name" json:"name"`
	Sequence        int     `db:"stop_sequence" json:"sequence"`
}

func (s Stop) String() string {
	return fmt.Sprintf("%s (#%d, seq %d)", s.Name, s.Id, s.Sequence)
}

// Line a public transport line a Trip belongs to
type Line struct {
	Id              int    `db:"line_id" json:"id"`
	InternationalId string `db:"line_international_id" json:"international_id,omitempty"`
	Name            string `db:"line_name" json:"name"`
}
