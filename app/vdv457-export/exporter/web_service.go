package exporter

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//resultsHandler serves the last batch report of an Exporter
type resultsHandler struct {
	log      *logger.Logger
	exporter *Exporter
}

//ServeHTTP implements resultsHandler http.Handler interface, responds with the complete last report
func (h *resultsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	report := h.exporter.LastReport()
	if report == nil {
		http.Error(w, "no export finished yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, report)
}

//serveTrip responds with the outcome of one trip of the last report
func (h *resultsHandler) serveTrip(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	operationDay, err := strconv.Atoi(vars["day"])
	if err != nil {
		http.Error(w, "invalid operation day", http.StatusBadRequest)
		return
	}
	tripId, err := strconv.Atoi(vars["trip"])
	if err != nil {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	key := apc.TripKey{OperationDay: operationDay, TripId: tripId, VehicleId: vars["vehicle"]}

	report := h.exporter.LastReport()
	if report == nil {
		http.Error(w, "no export finished yet", http.StatusNotFound)
		return
	}
	outcome, ok := report.outcome(key)
	if !ok {
		http.Error(w, "trip not part of the last export", http.StatusNotFound)
		return
	}
	h.writeJSON(w, outcome)
}

func (h *resultsHandler) writeJSON(w http.ResponseWriter, value interface{}) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		h.log.Printf("Error marshaling %T to json: error:%v\n", value, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	byteCount, err := w.Write(jsonData)
	if err != nil {
		h.log.Printf("Error writing json response: %s", err)
		return
	}
	h.log.Printf("wrote %d bytes in json response.", byteCount)
}

//createRouter routes the status, results and metrics endpoints of exporter
func createRouter(log *logger.Logger, exporter *Exporter) *mux.Router {
	results := &resultsHandler{log: log, exporter: exporter}

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/results", results).Methods(http.MethodGet)
	r.HandleFunc("/results/{day:[0-9]{8}}/{trip:[0-9]+}/{vehicle}", results.serveTrip).Methods(http.MethodGet)
	r.Handle("/metrics", exporter.Metrics().Handler())
	return r
}

//createServer creates configured http.Server for the export status service
func createServer(log *logger.Logger, exporter *Exporter, httpPort int) *http.Server {
	srv := &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      createRouter(log, exporter),
	}
	return srv
}

// RunWebService starts the export status web service, and terminates on shutdown signal
func RunWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	exporter *Exporter,
	httpPort int,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(log, exporter, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
