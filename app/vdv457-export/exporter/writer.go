package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

const (
	fileTimestampFormat = "2006-01-02-15-04-05"
	archiveDirName      = "Archive"
	defectiveDirName    = "Defective"
)

// ExportFileName returns the name of the export file of key created at now
func ExportFileName(now time.Time, key apc.TripKey, extension string) string {
	return fmt.Sprintf("%s_O%d_T%d_%s.%s", now.Format(fileTimestampFormat), key.OperationDay, key.TripId,
		key.VehicleId, extension)
}

// WriteExportFile transforms result with dialect and writes it to outputDir
// returns the path of the written file
func WriteExportFile(outputDir string, now time.Time, result *TripResult, dialect Dialect) (string, error) {
	data, err := dialect.Transform(result)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory %s: %w", outputDir, err)
	}
	path := filepath.Join(outputDir, ExportFileName(now, result.Key, dialect.FileExtension()))
	if err = os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("unable to write %s: %w", path, err)
	}
	return path, nil
}

// ArchiveInput moves the input files of a CSV source into a timestamped directory below inputDir, Archive for
// processed input and Defective for input that could not be read. Missing files are skipped.
// returns the directory the files were moved to
func ArchiveInput(inputDir string, now time.Time, defective bool) (string, error) {
	target := archiveDirName
	if defective {
		target = defectiveDirName
	}
	targetDir := filepath.Join(inputDir, target, now.Format(fileTimestampFormat))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create archive directory %s: %w", targetDir, err)
	}
	for _, name := range []string{CountingRowsFileName, TripDetailsFileName} {
		err := os.Rename(filepath.Join(inputDir, name), filepath.Join(targetDir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("unable to archive %s: %w", name, err)
		}
	}
	return targetDir, nil
}

// hasInput returns true if the counting rows file exists in inputDir
func hasInput(inputDir string) bool {
	_, err := os.Stat(filepath.Join(inputDir, CountingRowsFileName))
	return err == nil
}
