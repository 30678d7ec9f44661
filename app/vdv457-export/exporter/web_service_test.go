package exporter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestWebService(t *testing.T) {
	is := is.New(t)
	log := makeTestLogWriter().log
	exporter, err := NewExporter(log, nil, nil, makeTestConfig("testdata/batch", t.TempDir()))
	is.NoErr(err)
	router := createRouter(log, exporter)

	serve := func(path string) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		return recorder
	}

	is.Equal(serve("/").Header().Get("Application-Status"), "OK")
	is.Equal(serve("/results").Code, http.StatusNotFound)

	source, err := NewCSVSource("testdata/batch")
	is.NoErr(err)
	_, err = exporter.Export(source)
	is.NoErr(err)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantTrip   TripStatus
	}{
		{name: "exported trip", path: "/results/20241017/4711/1004", wantStatus: http.StatusOK, wantTrip: TripExported},
		{name: "dubious trip", path: "/results/20241003/4712/1005", wantStatus: http.StatusOK, wantTrip: TripDubious},
		{name: "unknown trip", path: "/results/20241003/1/1005", wantStatus: http.StatusNotFound},
		{name: "malformed day", path: "/results/2024/4711/1004", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			response := serve(tt.path)
			is.Equal(response.Code, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var outcome TripOutcome
			is.NoErr(json.Unmarshal(response.Body.Bytes(), &outcome))
			is.Equal(outcome.Status, tt.wantTrip)
		})
	}

	response := serve("/results")
	is.Equal(response.Code, http.StatusOK)
	var report BatchReport
	is.NoErr(json.Unmarshal(response.Body.Bytes(), &report))
	is.Equal(len(report.Outcomes), 3)

	metrics := serve("/metrics")
	is.Equal(metrics.Code, http.StatusOK)
	is.True(strings.Contains(metrics.Body.String(), `vdv457_export_trips_total{status="exported"} 1`))
	is.True(strings.Contains(metrics.Body.String(), "vdv457_export_batch_duration_seconds"))
}
