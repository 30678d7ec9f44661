package exporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

func TestExportFileName(t *testing.T) {
	is := is.New(t)
	now := time.Date(2024, 10, 18, 2, 5, 9, 0, time.UTC)
	key := apc.TripKey{OperationDay: 20241017, TripId: 4711, VehicleId: "1004"}
	is.Equal(ExportFileName(now, key, "xml"), "2024-10-18-02-05-09_O20241017_T4711_1004.xml")
}

func TestWriteExportFile(t *testing.T) {
	is := is.New(t)
	outputDir := filepath.Join(t.TempDir(), "nested")
	now := time.Date(2024, 10, 18, 2, 5, 9, 0, time.UTC)
	path, err := WriteExportFile(outputDir, now, makeTestTripResult(t), &jsonDialect{})
	is.NoErr(err)
	is.Equal(filepath.Base(path), "2024-10-18-02-05-09_O20241017_T4711_1004.json")
	data, err := os.ReadFile(path)
	is.NoErr(err)
	is.True(len(data) > 0)
}

func TestArchiveInput(t *testing.T) {
	is := is.New(t)
	inputDir := copyTestInput(t)
	now := time.Date(2024, 10, 18, 2, 5, 9, 0, time.UTC)

	dir, err := ArchiveInput(inputDir, now, false)
	is.NoErr(err)
	is.Equal(dir, filepath.Join(inputDir, "Archive", "2024-10-18-02-05-09"))
	for _, name := range []string{CountingRowsFileName, TripDetailsFileName} {
		_, err = os.Stat(filepath.Join(dir, name))
		is.NoErr(err)
	}
	is.True(!hasInput(inputDir))

	dir, err = ArchiveInput(inputDir, now, true)
	is.NoErr(err)
	is.Equal(dir, filepath.Join(inputDir, "Defective", "2024-10-18-02-05-09"))
}
