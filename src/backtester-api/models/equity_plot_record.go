package models

import "time"

type EquityPlotRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}
