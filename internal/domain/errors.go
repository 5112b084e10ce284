package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoBids          = errors.New("auction has no bids")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrPaymentExists   = errors.New("payment already exists for auction")
)

type ErrorKind string

const (
	KindPersistence  ErrorKind = "persistence"
	KindNotification ErrorKind = "notification"
	KindEvaluation   ErrorKind = "evaluation"
)

// SettlementError is a failure confined to a single auction within a pass.
type SettlementError struct {
	Kind      ErrorKind
	AuctionID string
	Err       error
}

func NewSettlementError(kind ErrorKind, auctionID string, err error) error {
	return &SettlementError{Kind: kind, AuctionID: auctionID, Err: err}
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("%s error for auction %s: %v", e.Kind, e.AuctionID, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
