package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAuction_ExpiredAt(t *testing.T) {
	now := time.Date(2020, 4, 25, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		created  time.Time
		expected bool
	}{
		{"exactly_one_week", now.AddDate(0, 0, -7), true},
		{"one_second_short_of_a_week", now.AddDate(0, 0, -7).Add(time.Second), false},
		{"yesterday", now.AddDate(0, 0, -1), false},
		{"long_ago", time.Date(1999, 2, 20, 0, 0, 0, 0, time.UTC), true},
		{"created_now", now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Auction{ID: "a1", CreatedAt: tt.created}
			assert.Equal(t, tt.expected, a.ExpiredAt(now, 7))
		})
	}
}

func TestAuction_ExpiredAt_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(rapid.Int64Range(0, 365*24*3600).Draw(t, "nowOffset")) * time.Second)
		age := time.Duration(rapid.Int64Range(0, 30*24*3600).Draw(t, "ageSeconds")) * time.Second

		a := &Auction{CreatedAt: now.Add(-age)}
		// UTC has no DST, so seven calendar days are exactly 168h.
		expected := age >= 7*24*time.Hour
		if got := a.ExpiredAt(now, 7); got != expected {
			t.Fatalf("age %s: expected expired=%v, got %v", age, expected, got)
		}
	})
}

func TestAuction_Close(t *testing.T) {
	a := &Auction{ID: "a1"}
	assert.Equal(t, AuctionOpen, a.Status())

	a.Close()
	assert.True(t, a.Closed)
	assert.Equal(t, AuctionClosed, a.Status())
	assert.Equal(t, "closed", a.Status().String())
}

func TestOutcome_Kind(t *testing.T) {
	ok := Outcome{AuctionID: "a1"}
	assert.False(t, ok.Failed())
	assert.Equal(t, ErrorKind(""), ok.Kind())

	cause := errors.New("connection reset")
	failed := Outcome{
		AuctionID: "a2",
		Err:       fmt.Errorf("wrapped: %w", NewSettlementError(KindNotification, "a2", cause)),
	}
	assert.True(t, failed.Failed())
	assert.Equal(t, KindNotification, failed.Kind())
	require.ErrorIs(t, failed.Err, cause)
}

func TestBatchReport_Failures(t *testing.T) {
	report := &BatchReport{
		Outcomes: []Outcome{
			{AuctionID: "a1"},
			{AuctionID: "a2", Err: NewSettlementError(KindPersistence, "a2", errors.New("boom"))},
			{AuctionID: "a3"},
		},
	}

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "a2", failures[0].AuctionID)
	assert.Equal(t, "persistence error for auction a2: boom", failures[0].Err.Error())
}
