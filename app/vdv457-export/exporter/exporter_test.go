package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

func TestExporter_Export(t *testing.T) {
	tests := []struct {
		name                 string
		failOnDeviceConflict bool
		wantExported         int
		wantDubious          int
		wantFailed           int
		wantStatus           []TripStatus
	}{
		{
			name:                 "device conflicts flag trip dubious",
			failOnDeviceConflict: true,
			wantExported:         1,
			wantDubious:          1,
			wantFailed:           1,
			wantStatus:           []TripStatus{TripDubious, TripExported, TripFailed},
		},
		{
			name:                 "device conflicts ignored",
			failOnDeviceConflict: false,
			wantExported:         2,
			wantDubious:          0,
			wantFailed:           1,
			wantStatus:           []TripStatus{TripExported, TripExported, TripFailed},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			outputDir := t.TempDir()
			cfg := makeTestConfig("testdata/batch", outputDir)
			cfg.FailOnDeviceConflict = tt.failOnDeviceConflict
			logWriter := makeTestLogWriter()
			exporter, err := NewExporter(logWriter.log, nil, nil, cfg)
			is.NoErr(err)
			is.True(exporter.LastReport() == nil)

			source, err := NewCSVSource("testdata/batch")
			is.NoErr(err)
			report, err := exporter.Export(source)
			is.NoErr(err)
			is.Equal(report.Exported, tt.wantExported)
			is.Equal(report.Dubious, tt.wantDubious)
			is.Equal(report.Failed, tt.wantFailed)
			is.Equal(len(report.Outcomes), len(tt.wantStatus))
			for i, outcome := range report.Outcomes {
				is.Equal(outcome.Status, tt.wantStatus[i])
				if outcome.Status == TripExported {
					is.Equal(len(outcome.Error), 0)
					_, err := os.Stat(outcome.File)
					is.NoErr(err)
				} else {
					is.True(len(outcome.Error) > 0)
					is.Equal(outcome.File, "")
				}
			}
			is.True(exporter.LastReport() == report)

			files, err := os.ReadDir(outputDir)
			is.NoErr(err)
			is.Equal(len(files), tt.wantExported)

			exported, ok := report.outcome(apc.TripKey{OperationDay: 20241017, TripId: 4711, VehicleId: "1004"})
			is.True(ok)
			is.Equal(exported.Events, 3)
			is.Equal(exported.Placeholders, 0)
			is.Equal(exported.DayType, DayTypeWeekday)
			is.True(strings.HasSuffix(exported.File, "_O20241017_T4711_1004.xml"))
			is.Equal(logWriter.countLines("Batch finished"), 1)
		})
	}
}

func TestExporter_ExportTrip(t *testing.T) {
	is := is.New(t)
	exporter, err := NewExporter(makeTestLogWriter().log, nil, nil, makeTestConfig("testdata/batch", t.TempDir()))
	is.NoErr(err)
	source, err := NewCSVSource("testdata/batch")
	is.NoErr(err)

	outcome, err := exporter.ExportTrip(source, apc.TripKey{OperationDay: 20241003, TripId: 4712, VehicleId: "1005"})
	is.NoErr(err)
	is.Equal(outcome.Status, TripDubious)
	is.True(strings.Contains(outcome.Error, "device devA and device devB"))

	_, err = exporter.ExportTrip(source, apc.TripKey{OperationDay: 20241003, TripId: 1, VehicleId: "1005"})
	is.True(err != nil)
}

func TestExporter_Run_archivesInput(t *testing.T) {
	is := is.New(t)
	inputDir := copyTestInput(t)
	cfg := makeTestConfig(inputDir, t.TempDir())
	cfg.ArchiveInput = true
	exporter, err := NewExporter(makeTestLogWriter().log, nil, nil, cfg)
	is.NoErr(err)

	report, err := exporter.Run()
	is.NoErr(err)
	is.Equal(report.Exported, 1)

	_, err = os.Stat(filepath.Join(inputDir, CountingRowsFileName))
	is.True(os.IsNotExist(err))
	archived, err := filepath.Glob(filepath.Join(inputDir, archiveDirName, "*", CountingRowsFileName))
	is.NoErr(err)
	is.Equal(len(archived), 1)

	// nothing left to process
	report, err = exporter.Run()
	is.NoErr(err)
	is.True(report == nil)
}

func TestExporter_Run_defectiveInput(t *testing.T) {
	is := is.New(t)
	inputDir := t.TempDir()
	err := os.WriteFile(filepath.Join(inputDir, CountingRowsFileName),
		[]byte("operation_day;trip_id\nnot a number;1\n"), 0644)
	is.NoErr(err)
	cfg := makeTestConfig(inputDir, t.TempDir())
	cfg.ArchiveInput = true
	exporter, err := NewExporter(makeTestLogWriter().log, nil, nil, cfg)
	is.NoErr(err)

	_, err = exporter.Run()
	is.True(err != nil)
	defective, err := filepath.Glob(filepath.Join(inputDir, defectiveDirName, "*", CountingRowsFileName))
	is.NoErr(err)
	is.Equal(len(defective), 1)
}

func TestNewExporter_invalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{
			name:   "unknown source",
			modify: func(cfg *Config) { cfg.Source = "ftp" },
		},
		{
			name:   "unknown dialect",
			modify: func(cfg *Config) { cfg.Dialect = "vdv452" },
		},
		{
			name:   "csv source without input",
			modify: func(cfg *Config) { cfg.InputDir = "" },
		},
		{
			name:   "no workers",
			modify: func(cfg *Config) { cfg.Workers = 0 },
		},
		{
			name:   "unknown holiday region",
			modify: func(cfg *Config) { cfg.HolidayRegion = "XX" },
		},
		{
			name:   "postgres source without database",
			modify: func(cfg *Config) { cfg.Source = SourcePostgres },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := makeTestConfig("testdata/batch", "output")
			tt.modify(&cfg)
			if _, err := NewExporter(makeTestLogWriter().log, nil, nil, cfg); err == nil {
				t.Errorf("NewExporter() expected error for %+v", cfg)
			}
		})
	}
}
