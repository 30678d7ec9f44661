package main

import (
	"testing"

	"github.com/sebastianknopf/VdvCountCore/business/data/apc"
)

func Test_parseTripKey(t *testing.T) {
	tests := []struct {
		name         string
		operationDay string
		tripId       string
		vehicleId    string
		want         apc.TripKey
		wantErr      bool
	}{
		{
			name:         "valid key",
			operationDay: "20241017",
			tripId:       "4711",
			vehicleId:    "1004",
			want:         apc.TripKey{OperationDay: 20241017, TripId: 4711, VehicleId: "1004"},
		},
		{name: "missing vehicle", operationDay: "20241017", tripId: "4711", wantErr: true},
		{name: "trip id not a number", operationDay: "20241017", tripId: "T4711", vehicleId: "1004", wantErr: true},
		{name: "operation day not a date", operationDay: "20241317", tripId: "4711", vehicleId: "1004", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTripKey(tt.operationDay, tt.tripId, tt.vehicleId)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTripKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseTripKey() got = %v, want %v", got, tt.want)
			}
		})
	}
}
