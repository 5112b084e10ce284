package domain

import (
	"errors"
	"time"
)

type Pass string

const (
	PassClosing Pass = "closing"
	PassPayment Pass = "payment"
)

// Outcome is the result of processing one auction. Err is nil on success.
// For the closing pass a notification failure still counts as closed.
type Outcome struct {
	AuctionID string
	Payment   *Payment
	Err       error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Kind returns the error kind of a failed outcome, or "" on success.
func (o Outcome) Kind() ErrorKind {
	var se *SettlementError
	if errors.As(o.Err, &se) {
		return se.Kind
	}
	return ""
}

type BatchReport struct {
	Pass       Pass
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Outcomes   []Outcome
}

func (r *BatchReport) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}
