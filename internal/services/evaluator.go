package services

import (
	"auction-settlement/internal/domain"
	"fmt"
)

// HighestBidEvaluator picks the winning amount as the highest bid.
type HighestBidEvaluator struct{}

func NewHighestBidEvaluator() *HighestBidEvaluator {
	return &HighestBidEvaluator{}
}

func (e *HighestBidEvaluator) Evaluate(auction *domain.Auction) (float64, error) {
	if len(auction.Bids) == 0 {
		return 0, fmt.Errorf("evaluate auction %s: %w", auction.ID, domain.ErrNoBids)
	}

	highest := auction.Bids[0].Amount
	for _, bid := range auction.Bids[1:] {
		if bid.Amount > highest {
			highest = bid.Amount
		}
	}
	return highest, nil
}
