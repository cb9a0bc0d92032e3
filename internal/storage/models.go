package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TestRun represents one persisted pipeline run.
type TestRun struct {
	ID              string
	StartedAt       time.Time
	Mode            string
	Surface         string
	Corrected       decimal.Decimal
	Valid           bool
	InvalidFraction decimal.Decimal
	ThicknessFactor decimal.Decimal
	LateralFactor   decimal.Decimal
	Classification  string
	Levels          []float64
	Ratios          []float64
	Filtered        []float64
	Series          json.RawMessage
	Error           *string
	CreatedAt       time.Time
}

// AlertRecord captures an emitted alert for de-duplication/auditing.
type AlertRecord struct {
	ID        int64
	RunID     string
	Corrected decimal.Decimal
	MinOhmsSq decimal.Decimal
	MaxOhmsSq decimal.Decimal
	Reason    string
	Channels  []string
	CreatedAt time.Time
}
