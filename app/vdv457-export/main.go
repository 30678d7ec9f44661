package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sebastianknopf/VdvCountCore/app/vdv457-export/exporter"
	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
	"github.com/sebastianknopf/VdvCountCore/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "VDV457_EXPORT : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// a local .env file is optional
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User           string `conf:"default:postgres"`
			Password       string `conf:"default:postgres,noprint"`
			Host           string `conf:"default:0.0.0.0"`
			Name           string `conf:"default:postgres"`
			DisableTLS     bool   `conf:"default:true"`
			ConnectRetries int    `conf:"default:5"`
		}
		NATS struct {
			Url           string
			ResultSubject string `conf:"default:vdv457-export-results"`
		}
		Export struct {
			Source               string `conf:"default:postgres"`
			Dialect              string `conf:"default:vdv457"`
			InputDir             string `conf:"default:input"`
			OutputDir            string `conf:"default:output"`
			ArchiveInput         bool   `conf:"default:true"`
			IntervalMinutes      int    `conf:"default:60"`
			Workers              int    `conf:"default:4"`
			FailOnDeviceConflict bool   `conf:"default:true"`
			HolidayRegion        string
		}
		Web struct {
			Port int `conf:"default:0"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Reconcile passenger counting data and export it per trip"
	const prefix = "VDV457_EXPORT"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	command := cfg.Args.Num(0)
	if command != "run" && command != "export" && command != "trip" {
		fmt.Println("run: export all staged trips every interval until stopped")
		fmt.Println("export: export all staged trips once")
		fmt.Println("trip <operation day> <trip id> <vehicle id>: export a single staged trip")
		usage, err := conf.Usage(prefix, &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
		return nil
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	var db *sqlx.DB
	if cfg.Export.Source == exporter.SourcePostgres {
		log.Println("main: Initializing database support")

		db, err = database.Open(database.Config{
			User:           cfg.DB.User,
			Password:       cfg.DB.Password,
			Host:           cfg.DB.Host,
			Name:           cfg.DB.Name,
			DisableTLS:     cfg.DB.DisableTLS,
			ConnectRetries: cfg.DB.ConnectRetries,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			err = db.Close()
			if err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
	}

	// =========================================================================
	// Start NATS

	var natsConnection *nats.Conn
	if len(cfg.NATS.Url) > 0 {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConnection, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConnection.Close()
	}

	exp, err := exporter.NewExporter(log, db, natsConnection, exporter.Config{
		Source:               cfg.Export.Source,
		Dialect:              cfg.Export.Dialect,
		InputDir:             cfg.Export.InputDir,
		OutputDir:            cfg.Export.OutputDir,
		ArchiveInput:         cfg.Export.ArchiveInput,
		Workers:              cfg.Export.Workers,
		FailOnDeviceConflict: cfg.Export.FailOnDeviceConflict,
		HolidayRegion:        cfg.Export.HolidayRegion,
		ResultSubject:        cfg.NATS.ResultSubject,
	})
	if err != nil {
		return err
	}

	switch command {
	case "export":
		_, err = exp.Run()
		return err

	case "trip":
		key, err := parseTripKey(cfg.Args.Num(1), cfg.Args.Num(2), cfg.Args.Num(3))
		if err != nil {
			return err
		}
		source, err := openSource(cfg.Export.Source, cfg.Export.InputDir, db)
		if err != nil {
			return err
		}
		outcome, err := exp.ExportTrip(source, key)
		if err != nil {
			return err
		}
		if outcome.Status != exporter.TripExported {
			return fmt.Errorf("trip %s %s: %s", key, outcome.Status, outcome.Error)
		}
		return nil
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	webShutdown := make(chan bool, 1)
	if cfg.Web.Port > 0 {
		wg.Add(1)
		go exporter.RunWebService(log, &wg, exp, cfg.Web.Port, webShutdown)
	}

	err = exporter.RunExportLoop(log, exp, time.Duration(cfg.Export.IntervalMinutes)*time.Minute, shutdown)
	webShutdown <- true
	wg.Wait()
	return err
}

// parseTripKey builds apc.TripKey from command line arguments
func parseTripKey(operationDay string, tripId string, vehicleId string) (apc.TripKey, error) {
	if len(operationDay) == 0 || len(tripId) == 0 || len(vehicleId) == 0 {
		return apc.TripKey{}, fmt.Errorf("expected operation day, trip id and vehicle id with command trip")
	}
	key := apc.TripKey{VehicleId: vehicleId}
	var err error
	if key.OperationDay, err = strconv.Atoi(operationDay); err != nil {
		return key, fmt.Errorf("unable to parse operation day %s, error: %w", operationDay, err)
	}
	if key.TripId, err = strconv.Atoi(tripId); err != nil {
		return key, fmt.Errorf("unable to parse trip id %s, error: %w", tripId, err)
	}
	if _, err = key.Date(); err != nil {
		return key, fmt.Errorf("operation day %s is not a YYYYMMDD date, error: %w", operationDay, err)
	}
	return key, nil
}

// openSource opens the source of the single trip command
func openSource(kind string, inputDir string, db *sqlx.DB) (exporter.Source, error) {
	if kind == exporter.SourceCSV {
		source, err := exporter.NewCSVSource(inputDir)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return exporter.NewPostgresSource(db), nil
}
