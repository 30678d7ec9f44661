package exporter

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

const (
	vdv457DialectName = "vdv457"
	vdv457TimeFormat  = "2006-01-02T15:04:05-07:00"
	vdv457Language    = "DE"
)

type vdv457Value struct {
	Value string `xml:"Value"`
}

type vdv457IntValue struct {
	Value int `xml:"Value"`
}

type vdv457LanguageValue struct {
	Value    string `xml:"Value"`
	Language string `xml:"Language"`
}

type vdv457Response struct {
	XMLName xml.Name             `xml:"PassengerCountingServiceBGS_457-3.GetAllDataResponse"`
	Journey vdv457ServiceJourney `xml:"PassengerCountingServiceJourney"`
}

type vdv457ServiceJourney struct {
	Header  vdv457HeaderServiceJourney `xml:"HeaderServiceJourney"`
	Message vdv457CountingMessage      `xml:"PassengerCountingMessage"`
}

type vdv457HeaderServiceJourney struct {
	ServiceJourneyID              int        `xml:"ServiceJourneyID"`
	DataType                      string     `xml:"DataType"`
	ServiceJourneyDepartureTime   string     `xml:"ServiceJourneyDepartureTime"`
	ServiceJourneyDestinationTime string     `xml:"ServiceJourneyDestinationTime"`
	Origin                        int        `xml:"Origin"`
	Destination                   int        `xml:"Destination"`
	Line                          vdv457Line `xml:"Line"`
}

type vdv457Line struct {
	LineRef       vdv457IntValue      `xml:"LineRef"`
	LineName      vdv457LanguageValue `xml:"LineName"`
	DirectionType int                 `xml:"DirectionType"`
}

type vdv457CountingMessage struct {
	Header vdv457HeaderData `xml:"HeaderData"`
	Events []vdv457Event    `xml:"PassengerCountingEvent"`
}

type vdv457HeaderData struct {
	TypeOfSurvey             string      `xml:"TypeOfSurvey"`
	AllVehiclesOfThisJourney vdv457Value `xml:"AllVehiclesOfThisJourney"`
	AllCountingAreas         vdv457Value `xml:"AllCountingAreas"`
	VehicleID                string      `xml:"VehicleID"`
}

type vdv457Event struct {
	StopInformation vdv457StopInformation `xml:"StopInformation"`
	CountingAreas   []vdv457CountingArea  `xml:"CountingArea"`
}

type vdv457StopInformation struct {
	StopStatus string              `xml:"StopStatus"`
	StopRef    vdv457IntValue      `xml:"StopRef"`
	StopName   vdv457LanguageValue `xml:"StopName"`
}

type vdv457CountingArea struct {
	AreaID         string               `xml:"AreaID"`
	HeaderCounting vdv457HeaderCounting `xml:"HeaderCounting"`
	Countings      []vdv457Counting     `xml:"Counting"`
}

type vdv457HeaderCounting struct {
	QueryType           string      `xml:"QueryType,attr"`
	SequentialNumber    int         `xml:"SequentialNumber"`
	TimeStamp           vdv457Value `xml:"TimeStamp"`
	TimeStampEventStart vdv457Value `xml:"TimeStampEventStart"`
	TimeStampEventEnd   vdv457Value `xml:"TimeStampEventEnd"`
}

type vdv457Counting struct {
	DoorID    vdv457Value     `xml:"DoorID"`
	DoorState vdv457DoorState `xml:"DoorState"`
	Counts    []vdv457Count   `xml:"Count"`
}

type vdv457DoorState struct {
	OpenState      vdv457Value `xml:"OpenState"`
	OperationState vdv457Value `xml:"OperationState"`
}

type vdv457Count struct {
	ObjectClass string         `xml:"ObjectClass"`
	In          vdv457IntValue `xml:"In"`
	Out         vdv457IntValue `xml:"Out"`
}

//vdv457Dialect renders GetAllDataResponse documents of the VDV457 passenger counting service
type vdv457Dialect struct {
}

func (v *vdv457Dialect) Name() string {
	return vdv457DialectName
}

func (v *vdv457Dialect) FileExtension() string {
	return "xml"
}

// Transform builds the GetAllDataResponse document of result, prefixed with the xml declaration.
// Counting areas, doors and object classes appear in the order they were first reported.
func (v *vdv457Dialect) Transform(result *TripResult) ([]byte, error) {
	trip := result.Trip
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	first := trip.FirstStopTime()
	last := trip.LastStopTime()
	destinationTime := last.ArrivalTime
	if destinationTime == nil {
		destinationTime = last.NominalTime()
	}

	response := vdv457Response{
		Journey: vdv457ServiceJourney{
			Header: vdv457HeaderServiceJourney{
				ServiceJourneyID:              trip.Id,
				DataType:                      "RawData",
				ServiceJourneyDepartureTime:   formatVdv457Time(*first.NominalTime()),
				ServiceJourneyDestinationTime: formatVdv457Time(*destinationTime),
				Origin:                        first.Stop.ParentId,
				Destination:                   last.Stop.ParentId,
				Line: vdv457Line{
					DirectionType: trip.Direction,
				},
			},
			Message: vdv457CountingMessage{
				Header: vdv457HeaderData{
					TypeOfSurvey:             "manual",
					AllVehiclesOfThisJourney: vdv457Value{Value: "false"},
					AllCountingAreas:         vdv457Value{Value: "false"},
					VehicleID:                result.Key.VehicleId,
				},
				Events: make([]vdv457Event, 0, len(result.Events)),
			},
		},
	}
	if trip.Line != nil {
		response.Journey.Header.Line.LineRef = vdv457IntValue{Value: trip.Line.Id}
		response.Journey.Header.Line.LineName = vdv457LanguageValue{Value: trip.Line.Name, Language: vdv457Language}
	}

	for i, pce := range result.Events {
		if pce.Stop == nil {
			return nil, fmt.Errorf("PCE %d of trip %s is not assigned to a stop: %s", i+1, result.Key, pce)
		}
		response.Journey.Message.Events = append(response.Journey.Message.Events, makeVdv457Event(i+1, pce))
	}

	body, err := xml.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("unable to marshal trip %s to xml: %w", result.Key, err)
	}
	return append([]byte(xml.Header), body...), nil
}

func makeVdv457Event(sequentialNumber int, pce *apc.PassengerCountingEvent) vdv457Event {
	event := vdv457Event{
		StopInformation: vdv457StopInformation{
			StopStatus: "normal",
			StopRef:    vdv457IntValue{Value: pce.Stop.ParentId},
			StopName:   vdv457LanguageValue{Value: pce.Stop.Name, Language: vdv457Language},
		},
		CountingAreas: make([]vdv457CountingArea, 0),
	}
	begin := formatVdv457Time(pce.BeginTimestamp())
	end := formatVdv457Time(pce.EndTimestamp())

	for _, areaId := range distinct(pce, func(cs *apc.CountingSequence) string { return cs.CountingAreaId }) {
		area := vdv457CountingArea{
			AreaID: areaId,
			HeaderCounting: vdv457HeaderCounting{
				QueryType:           "departure",
				SequentialNumber:    sequentialNumber,
				TimeStamp:           vdv457Value{Value: end},
				TimeStampEventStart: vdv457Value{Value: begin},
				TimeStampEventEnd:   vdv457Value{Value: end},
			},
			Countings: make([]vdv457Counting, 0),
		}
		for _, doorId := range distinct(pce, func(cs *apc.CountingSequence) string { return cs.DoorId }) {
			counting := vdv457Counting{
				DoorID: vdv457Value{Value: doorId},
				DoorState: vdv457DoorState{
					OpenState:      vdv457Value{Value: "AllDoorsClosed"},
					OperationState: vdv457Value{Value: "Normal"},
				},
				Counts: make([]vdv457Count, 0),
			}
			for _, cs := range pce.CountingSequences {
				if cs.CountingAreaId != areaId || cs.DoorId != doorId {
					continue
				}
				counting.Counts = append(counting.Counts, vdv457Count{
					ObjectClass: cs.ObjectClass,
					In:          vdv457IntValue{Value: cs.CountIn},
					Out:         vdv457IntValue{Value: cs.CountOut},
				})
			}
			if len(counting.Counts) > 0 {
				area.Countings = append(area.Countings, counting)
			}
		}
		event.CountingAreas = append(event.CountingAreas, area)
	}
	return event
}

// distinct returns the values of field over the counting sequences of pce in order of first appearance
func distinct(pce *apc.PassengerCountingEvent, field func(cs *apc.CountingSequence) string) []string {
	seen := make(map[string]bool)
	results := make([]string, 0)
	for _, cs := range pce.CountingSequences {
		value := field(cs)
		if !seen[value] {
			seen[value] = true
			results = append(results, value)
		}
	}
	return results
}

func formatVdv457Time(at time.Time) string {
	return at.UTC().Format(vdv457TimeFormat)
}
