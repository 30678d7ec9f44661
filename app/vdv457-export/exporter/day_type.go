package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
)

// DayType classifies an operation day the way schedules are planned
type DayType string

const (
	DayTypeWeekday       DayType = "weekday"
	DayTypeSaturday      DayType = "saturday"
	DayTypeSundayHoliday DayType = "sunday_holiday"
)

// regionHolidays holds the public holidays of every German state by its two letter code, the empty code
// selects the nationwide holidays
var regionHolidays = map[string][]*cal.Holiday{
	"":   de.Holidays,
	"BW": de.HolidaysBW,
	"BY": de.HolidaysBY,
	"BE": de.HolidaysBE,
	"BB": de.HolidaysBB,
	"HB": de.HolidaysHB,
	"HH": de.HolidaysHH,
	"HE": de.HolidaysHE,
	"MV": de.HolidaysMV,
	"NI": de.HolidaysNI,
	"NW": de.HolidaysNW,
	"RP": de.HolidaysRP,
	"SL": de.HolidaysSL,
	"SN": de.HolidaysSN,
	"ST": de.HolidaysST,
	"SH": de.HolidaysSH,
	"TH": de.HolidaysTH,
}

// DayTypeCalendar classifies operation days, holidays are served like sundays
type DayTypeCalendar struct {
	calendar *cal.BusinessCalendar
}

// NewDayTypeCalendar builds DayTypeCalendar with the public holidays of region, a German state code like BW.
// An empty region uses the nationwide holidays only.
// returns error if region is unknown
func NewDayTypeCalendar(region string) (*DayTypeCalendar, error) {
	holidays, ok := regionHolidays[strings.ToUpper(region)]
	if !ok {
		return nil, fmt.Errorf("unknown holiday region %q", region)
	}
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(holidays...)
	return &DayTypeCalendar{calendar: calendar}, nil
}

// DayType returns the DayType of the day at
func (d *DayTypeCalendar) DayType(at time.Time) DayType {
	if actual, observed, _ := d.calendar.IsHoliday(at); actual || observed {
		return DayTypeSundayHoliday
	}
	switch at.Weekday() {
	case time.Sunday:
		return DayTypeSundayHoliday
	case time.Saturday:
		return DayTypeSaturday
	default:
		return DayTypeWeekday
	}
}
