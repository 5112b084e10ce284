package domain

import (
	"context"
	"time"
)

// Repository interfaces
type AuctionRepository interface {
	ListOpen(ctx context.Context) ([]*Auction, error)
	Update(ctx context.Context, auction *Auction) error
	// ListClosedAwaitingPayment returns closed auctions that have no payment yet.
	// It is the only guard against generating a second payment for an auction.
	ListClosedAwaitingPayment(ctx context.Context) ([]*Auction, error)
}

type PaymentRepository interface {
	SavePayment(ctx context.Context, payment *Payment) error
}

// Notification interfaces
type NotificationSender interface {
	Send(ctx context.Context, auction *Auction) error
}

type Clock interface {
	Now() time.Time
}

type Evaluator interface {
	Evaluate(auction *Auction) (float64, error)
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// BatchRunner is a settlement pass that can be triggered on demand.
type BatchRunner interface {
	Run(ctx context.Context) (*BatchReport, error)
}
