// Package exporter reconciles the staged passenger counting data of all trips and writes one export file per
// trip in the configured dialect
package exporter

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
	"github.com/sourcegraph/conc/pool"
)

const (
	SourcePostgres = "postgres"
	SourceCSV      = "csv"
)

// Config holds the export settings of the service
type Config struct {
	Source               string `validate:"oneof=postgres csv"`
	Dialect              string `validate:"oneof=vdv457 json"`
	InputDir             string `validate:"required_if=Source csv"`
	OutputDir            string `validate:"required"`
	ArchiveInput         bool
	Workers              int `validate:"gte=1"`
	FailOnDeviceConflict bool
	// HolidayRegion is the German state code whose holidays classify operation days, empty for nationwide
	HolidayRegion        string
	ResultSubject        string `validate:"required"`
}

var configValidator = validator.New()

// TripStatus is the result of exporting one trip
type TripStatus string

const (
	TripExported TripStatus = "exported"
	// TripDubious trips were reported by conflicting devices and need manual review
	TripDubious TripStatus = "dubious"
	TripFailed  TripStatus = "failed"
)

// TripOutcome describes what happened to one trip of a batch
type TripOutcome struct {
	Key                  apc.TripKey `json:"key"`
	Status               TripStatus  `json:"status"`
	Error                string      `json:"error,omitempty"`
	File                 string      `json:"file,omitempty"`
	DayType              DayType     `json:"day_type,omitempty"`
	Events               int         `json:"events"`
	Placeholders         int         `json:"placeholders"`
	RepairedViolations   int         `json:"repaired_violations"`
	UnresolvedViolations int         `json:"unresolved_violations"`
	FinishedAt           time.Time   `json:"finished_at"`
}

// BatchReport summarizes one export run over all staged trips
type BatchReport struct {
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Exported int           `json:"exported"`
	Dubious  int           `json:"dubious"`
	Failed   int           `json:"failed"`
	Outcomes []TripOutcome `json:"outcomes"`
}

// summary returns a copy of the report without outcomes
func (b *BatchReport) summary() BatchReport {
	return BatchReport{
		Started:  b.Started,
		Finished: b.Finished,
		Exported: b.Exported,
		Dubious:  b.Dubious,
		Failed:   b.Failed,
		Outcomes: make([]TripOutcome, 0),
	}
}

// outcome returns the outcome of the trip identified by key
func (b *BatchReport) outcome(key apc.TripKey) (TripOutcome, bool) {
	for _, outcome := range b.Outcomes {
		if outcome.Key == key {
			return outcome, true
		}
	}
	return TripOutcome{}, false
}

// Exporter runs export batches, trips of a batch are processed in parallel
type Exporter struct {
	log       *log.Logger
	db        *sqlx.DB
	cfg       Config
	dialect   Dialect
	calendar  *DayTypeCalendar
	publisher *outcomePublisher
	metrics   *Metrics

	mu         sync.RWMutex
	lastReport *BatchReport
}

// NewExporter creates Exporter, db is only used by the postgres source and natsConnection may be nil
// returns error if cfg is invalid
func NewExporter(log *log.Logger, db *sqlx.DB, natsConnection *nats.Conn, cfg Config) (*Exporter, error) {
	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid export configuration: %w", err)
	}
	if cfg.Source == SourcePostgres && db == nil {
		return nil, fmt.Errorf("source %s requires a database connection", SourcePostgres)
	}
	dialect, err := NewDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	calendar, err := NewDayTypeCalendar(cfg.HolidayRegion)
	if err != nil {
		return nil, err
	}
	return &Exporter{
		log:       log,
		db:        db,
		cfg:       cfg,
		dialect:   dialect,
		calendar:  calendar,
		publisher: makeOutcomePublisher(log, natsConnection, cfg.ResultSubject),
		metrics:   NewMetrics(),
	}, nil
}

// Metrics returns the collectors updated by the exporter
func (e *Exporter) Metrics() *Metrics {
	return e.metrics
}

// LastReport returns the report of the last finished batch, nil if no batch finished yet
func (e *Exporter) LastReport() *BatchReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReport
}

// Run exports all trips of the configured source once. CSV input is archived afterwards if configured, input
// that cannot be read is moved to the defective directory.
// returns nil report if there was no CSV input to process
func (e *Exporter) Run() (*BatchReport, error) {
	if e.cfg.Source == SourcePostgres {
		return e.Export(NewPostgresSource(e.db))
	}

	if !hasInput(e.cfg.InputDir) {
		e.log.Printf("No input in %s", e.cfg.InputDir)
		return nil, nil
	}
	source, err := NewCSVSource(e.cfg.InputDir)
	if err != nil {
		if e.cfg.ArchiveInput {
			e.archive(true)
		}
		return nil, err
	}
	report, err := e.Export(source)
	if err == nil && e.cfg.ArchiveInput {
		e.archive(false)
	}
	return report, err
}

func (e *Exporter) archive(defective bool) {
	dir, err := ArchiveInput(e.cfg.InputDir, time.Now(), defective)
	if err != nil {
		e.log.Printf("error archiving input of %s. error: %v", e.cfg.InputDir, err)
		return
	}
	e.log.Printf("Moved input to %s", dir)
}

// Export reconciles and writes all trips of source. A failing trip does not stop the batch, it is recorded
// as dubious if devices conflicted and as failed otherwise.
func (e *Exporter) Export(source Source) (*BatchReport, error) {
	report := BatchReport{Started: time.Now()}

	counts, err := source.DeviceRowCounts()
	if err != nil {
		return nil, fmt.Errorf("unable to load device row counts: %w", err)
	}
	trips := GroupTripDevices(counts)
	e.log.Printf("Exporting %d trips with %d workers", len(trips), e.cfg.Workers)

	p := pool.NewWithResults[TripOutcome]().WithMaxGoroutines(e.cfg.Workers)
	for _, devices := range trips {
		p.Go(func() TripOutcome {
			return e.exportTrip(source, devices)
		})
	}
	report.Outcomes = p.Wait()
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return lessTripKey(report.Outcomes[i].Key, report.Outcomes[j].Key)
	})

	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case TripExported:
			report.Exported++
		case TripDubious:
			report.Dubious++
		default:
			report.Failed++
		}
	}
	report.Finished = time.Now()

	e.metrics.observeReport(&report)
	e.publisher.publishReport(&report)
	e.mu.Lock()
	e.lastReport = &report
	e.mu.Unlock()
	return &report, nil
}

// ExportTrip reconciles and writes the single trip identified by key
// returns error if source has no rows for key
func (e *Exporter) ExportTrip(source Source, key apc.TripKey) (TripOutcome, error) {
	counts, err := source.DeviceRowCounts()
	if err != nil {
		return TripOutcome{}, fmt.Errorf("unable to load device row counts: %w", err)
	}
	keyCounts := make([]apc.DeviceRowCount, 0)
	for _, count := range counts {
		if count.TripKey == key {
			keyCounts = append(keyCounts, count)
		}
	}
	if len(keyCounts) == 0 {
		return TripOutcome{}, fmt.Errorf("no counting rows staged for trip %s", key)
	}
	return e.exportTrip(source, GroupTripDevices(keyCounts)[0]), nil
}

// exportTrip reconciles one trip, writes its export file and publishes the outcome
func (e *Exporter) exportTrip(source Source, devices TripDevices) TripOutcome {
	outcome := TripOutcome{
		Key:    devices.Key,
		Status: TripExported,
	}
	result, err := ReconcileTrip(e.log, source, devices, e.cfg.FailOnDeviceConflict, e.calendar)
	if err == nil {
		outcome.DayType = result.DayType
		outcome.Events = len(result.Events)
		outcome.Placeholders = result.Placeholders
		outcome.RepairedViolations = result.RepairedViolations
		outcome.UnresolvedViolations = result.UnresolvedViolations
		outcome.File, err = WriteExportFile(e.cfg.OutputDir, time.Now(), result, e.dialect)
	}
	if err != nil {
		outcome.Status = TripFailed
		var conflict *apc.ConflictingDeviceError
		if errors.As(err, &conflict) {
			outcome.Status = TripDubious
		}
		outcome.Error = err.Error()
	}
	outcome.FinishedAt = time.Now()

	e.metrics.observeOutcome(outcome)
	e.publisher.publishOutcome(outcome)
	return outcome
}

func lessTripKey(a apc.TripKey, b apc.TripKey) bool {
	if a.OperationDay != b.OperationDay {
		return a.OperationDay < b.OperationDay
	}
	if a.TripId != b.TripId {
		return a.TripId < b.TripId
	}
	return a.VehicleId < b.VehicleId
}
