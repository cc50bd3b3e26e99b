package models

import "time"

// LiveResult is the running tally of a live engine.
type LiveResult struct {
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	BarsProcessed  int        `json:"bars_processed"`
	OrdersExecuted int        `json:"orders_executed"`
	Errors         []string   `json:"errors"`
}

func (r LiveResult) Copy() LiveResult {
	out := r
	if r.EndTime != nil {
		end := *r.EndTime
		out.EndTime = &end
	}

	out.Errors = append([]string(nil), r.Errors...)
	return out
}
