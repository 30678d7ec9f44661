package exporter

import (
	"log"
	"os"
	"time"
)

// RunExportLoop runs an export batch right away and then every interval until a shutdown signal is received.
// A batch taking longer than interval is followed by the next one immediately.
func RunExportLoop(log *log.Logger,
	exporter *Exporter,
	interval time.Duration,
	shutdownSignal chan os.Signal) error {

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-shutdownSignal:
			log.Printf("Exiting export loop on shutdown signal")
			return nil
		case <-timer.C:
		}

		start := time.Now()
		report, err := exporter.Run()
		if err != nil {
			log.Printf("error running export. error:%v\n", err)
		} else if report != nil {
			log.Printf("Export of %d trips finished", len(report.Outcomes))
		}

		took := time.Since(start)
		wait := nextRunIn(interval, took)
		log.Printf("work took %s, next export in %s", took.Round(time.Millisecond), wait.Round(time.Second))
		timer.Reset(wait)
	}
}

// nextRunIn returns how long to wait after a batch that took took, so batches start every interval
func nextRunIn(interval time.Duration, took time.Duration) time.Duration {
	if took >= interval {
		return 0
	}
	return interval - took
}
