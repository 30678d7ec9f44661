// Package database provides support for access the database.
package database

import (
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
)

// Config is the required properties to use the database.
type Config struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
	// ConnectRetries is the number of additional connection attempts made with exponential backoff
	ConnectRetries int
}

// connectionString builds the postgres url for cfg
func connectionString(cfg Config) string {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open knows how to open a database connection based on the configuration.
// Failed connection attempts are retried cfg.ConnectRetries times.
func Open(cfg Config) (*sqlx.DB, error) {
	connection := connectionString(cfg)

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.MaxElapsedTime = 2 * time.Minute

	var db *sqlx.DB
	err := backoff.Retry(func() error {
		var err error
		db, err = sqlx.Connect("pgx", connection)
		return err
	}, backoff.WithMaxRetries(retryBackoff, uint64(cfg.ConnectRetries)))
	return db, err
}

// PrepareNamedQueryFromMap wraps boilerplate sqlx to prepare named query from map of ddl parameters
// returns rebound query string and arguments slice
func PrepareNamedQueryFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (string, []interface{}, error) {

	query, args, err := sqlx.Named(statementString, sqlArgMap)
	if err != nil {
		return query, nil, err
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return query, nil, err
	}
	query = db.Rebind(query)
	return query, args, nil
}
