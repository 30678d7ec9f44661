package exporter

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

//outcomePublisher sends export outcomes to NATS if a connection is configured
type outcomePublisher struct {
	log             *log.Logger
	natsConnection  *nats.Conn
	subject         string
	publishOverNats bool
}

//makeOutcomePublisher creates outcomePublisher, publishing is disabled when natsConnection is nil
func makeOutcomePublisher(log *log.Logger, natsConnection *nats.Conn, subject string) *outcomePublisher {
	return &outcomePublisher{
		log:             log,
		natsConnection:  natsConnection,
		subject:         subject,
		publishOverNats: natsConnection != nil,
	}
}

//publishOutcome logs outcome and sends it on the result subject
func (o *outcomePublisher) publishOutcome(outcome TripOutcome) {
	if len(outcome.Error) > 0 {
		o.log.Printf("Trip %s %s: %s", outcome.Key, outcome.Status, outcome.Error)
	} else {
		o.log.Printf("Trip %s %s to %s with %d PCEs", outcome.Key, outcome.Status, outcome.File, outcome.Events)
	}
	if o.publishOverNats {
		o.sendOverNats(o.subject, outcome)
	}
}

//publishReport sends the summary of a batch on the batch subject below the result subject
func (o *outcomePublisher) publishReport(report *BatchReport) {
	o.log.Printf("Batch finished in %s: %d exported, %d dubious, %d failed", report.Finished.Sub(report.Started),
		report.Exported, report.Dubious, report.Failed)
	if o.publishOverNats {
		o.sendOverNats(o.subject+".batch", report.summary())
	}
}

func (o *outcomePublisher) sendOverNats(subject string, value interface{}) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		o.log.Printf("failed to marshal %T in outcomePublisher.sendOverNats, error:%v", value, err)
		return
	}
	err = o.natsConnection.Publish(subject, jsonData)
	if err != nil {
		o.log.Printf("failed to send %T on %s in outcomePublisher.sendOverNats, error:%v", value, subject, err)
	}
}
