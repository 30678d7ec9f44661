package exporter

import (
	"encoding/json"
	"fmt"
)

// Dialect transforms a reconciled trip into one export format
type Dialect interface {
	Name() string
	FileExtension() string
	Transform(result *TripResult) ([]byte, error)
}

// NewDialect returns the Dialect registered under name
func NewDialect(name string) (Dialect, error) {
	switch name {
	case vdv457DialectName:
		return &vdv457Dialect{}, nil
	case jsonDialectName:
		return &jsonDialect{}, nil
	}
	return nil, fmt.Errorf("unknown export dialect %q, expected %s or %s", name, vdv457DialectName,
		jsonDialectName)
}

const jsonDialectName = "json"

//jsonDialect writes the reconciled trip as indented json for review tooling
type jsonDialect struct {
}

func (j *jsonDialect) Name() string {
	return jsonDialectName
}

func (j *jsonDialect) FileExtension() string {
	return "json"
}

func (j *jsonDialect) Transform(result *TripResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("unable to marshal trip %s to json: %w", result.Key, err)
	}
	return data, nil
}
