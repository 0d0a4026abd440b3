package meter

import (
	"testing"
	"time"
)

func TestParsePayload(t *testing.T) {
	received := time.Date(2025, 6, 18, 12, 0, 30, 0, time.UTC)

	tests := []struct {
		name        string
		payload     string
		ok          bool
		expectedKWH float64
		expectedAt  time.Time
	}{
		{
			name:        "bare float",
			payload:     "12345.678",
			ok:          true,
			expectedKWH: 12345.678,
			expectedAt:  received,
		},
		{
			name:        "bare float with whitespace",
			payload:     " 100.5\n",
			ok:          true,
			expectedKWH: 100.5,
			expectedAt:  received,
		},
		{
			name:        "json with timestamp",
			payload:     `{"timestamp": "2025-06-18T11:59:58Z", "kwh_total": 100.25}`,
			ok:          true,
			expectedKWH: 100.25,
			expectedAt:  time.Date(2025, 6, 18, 11, 59, 58, 0, time.UTC),
		},
		{
			name:        "json without timestamp stamped with receive time",
			payload:     `{"kwh_total": 100.25}`,
			ok:          true,
			expectedKWH: 100.25,
			expectedAt:  received,
		},
		{
			name:        "json with bad timestamp falls back to receive time",
			payload:     `{"timestamp": "noonish", "kwh_total": 100.25}`,
			ok:          true,
			expectedKWH: 100.25,
			expectedAt:  received,
		},
		{
			name:        "json with future timestamp falls back to receive time",
			payload:     `{"timestamp": "2029-06-18T12:00:00Z", "kwh_total": 100.25}`,
			ok:          true,
			expectedKWH: 100.25,
			expectedAt:  received,
		},
		{
			name:        "json with timestamp within skew is kept",
			payload:     `{"timestamp": "2025-06-18T12:02:00Z", "kwh_total": 100.25}`,
			ok:          true,
			expectedKWH: 100.25,
			expectedAt:  time.Date(2025, 6, 18, 12, 2, 0, 0, time.UTC),
		},
		{
			name:    "json missing kwh_total",
			payload: `{"timestamp": "2025-06-18T11:59:58Z"}`,
			ok:      false,
		},
		{
			name:    "empty payload",
			payload: "",
			ok:      false,
		},
		{
			name:    "garbage",
			payload: "hello",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, ok := parsePayload([]byte(tt.payload), received)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if reading.KWH != tt.expectedKWH {
				t.Errorf("kwh expected %f, got %f", tt.expectedKWH, reading.KWH)
			}
			if !reading.At.Equal(tt.expectedAt) {
				t.Errorf("at expected %v, got %v", tt.expectedAt, reading.At)
			}
		})
	}
}
