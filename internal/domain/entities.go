package domain

import (
	"time"
)

type Auction struct {
	ID          string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Closed      bool
	// Bids are kept in the order they were placed.
	Bids []Bid
}

type Bid struct {
	BidderID string
	Amount   float64
	PlacedAt time.Time
}

// Close flips the auction to closed. There is no way back.
func (a *Auction) Close() {
	a.Closed = true
}

// ExpiredAt reports whether the auction was opened at least days calendar
// days before now.
func (a *Auction) ExpiredAt(now time.Time, days int) bool {
	return !a.CreatedAt.AddDate(0, 0, days).After(now)
}

type Payment struct {
	ID            string
	AuctionID     string
	Amount        float64
	ScheduledDate time.Time
	CreatedAt     time.Time
}

type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosed
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "open"
	case AuctionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (a *Auction) Status() AuctionStatus {
	if a.Closed {
		return AuctionClosed
	}
	return AuctionOpen
}

type SettlementEventType string

const (
	AuctionClosedEvent SettlementEventType = "auction_closed"
)

// SettlementEvent is what downstream consumers receive when an auction closes.
type SettlementEvent struct {
	Type        SettlementEventType `json:"type"`
	AuctionID   string              `json:"auction_id"`
	Description string              `json:"description"`
	BidCount    int                 `json:"bid_count"`
	Timestamp   time.Time           `json:"timestamp"`
}
