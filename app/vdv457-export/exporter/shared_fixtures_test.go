package exporter

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type testLogWriter struct {
	mu       sync.Mutex
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "VDV457_EXPORT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// countLines returns the number of log lines containing substring
func (t *testLogWriter) countLines(substring string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, line := range t.logLines {
		if strings.Contains(line, substring) {
			count++
		}
	}
	return count
}

// copyTestInput copies the files of testdata/batch into a new temporary directory
func copyTestInput(t *testing.T) string {
	dir := t.TempDir()
	for _, name := range []string{CountingRowsFileName, TripDetailsFileName} {
		src, err := os.Open(filepath.Join("testdata", "batch", name))
		if err != nil {
			t.Fatalf("unable to open test input %s: %v", name, err)
		}
		dst, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			_ = src.Close()
			t.Fatalf("unable to create test input %s: %v", name, err)
		}
		_, err = io.Copy(dst, src)
		_ = src.Close()
		_ = dst.Close()
		if err != nil {
			t.Fatalf("unable to copy test input %s: %v", name, err)
		}
	}
	return dir
}

func makeTestConfig(inputDir string, outputDir string) Config {
	return Config{
		Source:               SourceCSV,
		Dialect:              vdv457DialectName,
		InputDir:             inputDir,
		OutputDir:            outputDir,
		ArchiveInput:         false,
		Workers:              2,
		FailOnDeviceConflict: true,
		ResultSubject:        "vdv457-export-results",
	}
}
