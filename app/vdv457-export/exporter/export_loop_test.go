package exporter

import (
	"os"
	"testing"
	"time"

	"github.com/matryer/is"
)

func Test_nextRunIn(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		took     time.Duration
		want     time.Duration
	}{
		{name: "quick batch", interval: time.Hour, took: 10 * time.Minute, want: 50 * time.Minute},
		{name: "batch as long as interval", interval: time.Hour, took: time.Hour, want: 0},
		{name: "batch longer than interval", interval: time.Hour, took: 2 * time.Hour, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextRunIn(tt.interval, tt.took); got != tt.want {
				t.Errorf("nextRunIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunExportLoop_shutdown(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	exporter, err := NewExporter(logWriter.log, nil, nil, makeTestConfig(copyTestInput(t), t.TempDir()))
	is.NoErr(err)

	shutdown := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- RunExportLoop(logWriter.log, exporter, time.Hour, shutdown)
	}()

	// the first batch runs without waiting for the interval
	deadline := time.Now().Add(5 * time.Second)
	for exporter.LastReport() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("no export batch finished before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	shutdown <- os.Interrupt
	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(5 * time.Second):
		t.Fatalf("export loop did not stop on shutdown signal")
	}
	is.Equal(logWriter.countLines("Exiting export loop on shutdown signal"), 1)
	is.Equal(len(exporter.LastReport().Outcomes), 3)
}
