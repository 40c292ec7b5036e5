// Package metrics records the outcome of order creations on a side channel. Recorders never
// fail the operation they observe.
package metrics

import (
	"context"
	"time"
)

// Record describes one order creation attempt.
type Record struct {
	OperationID        string
	Title              string
	ISBN               string
	Category           string
	ValidationDuration time.Duration
	DatabaseDuration   time.Duration
	TotalDuration      time.Duration
	Success            bool
	ErrorReason        string
}

// Outcome is the label value for r.
func (r Record) Outcome() string {
	if r.Success {
		return "success"
	}
	return "failure"
}

// Recorder receives creation records.
type Recorder interface {
	RecordOrderCreation(ctx context.Context, r Record)
}

type multi []Recorder

// Multi fans a record out to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	var m multi
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) RecordOrderCreation(ctx context.Context, r Record) {
	for _, rec := range m {
		rec.RecordOrderCreation(ctx, r)
	}
}
