package services

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"context"
	"fmt"
	"sync"
	"time"
)

const DefaultCloseAfterDays = 7

type AuctionCloserConfig struct {
	Auctions domain.AuctionRepository
	Sender   domain.NotificationSender
	// Clock defaults to the system clock in UTC.
	Clock domain.Clock
	// CloseAfterDays defaults to DefaultCloseAfterDays when zero.
	CloseAfterDays int
	Log            logger.Logger
}

// AuctionCloser closes open auctions once they are old enough and notifies
// about every closure that was persisted.
type AuctionCloser struct {
	auctions       domain.AuctionRepository
	sender         domain.NotificationSender
	clock          domain.Clock
	closeAfterDays int
	log            logger.Logger

	runMutex    sync.Mutex
	totalClosed int
}

func NewAuctionCloser(auctions domain.AuctionRepository, sender domain.NotificationSender,
	log logger.Logger) *AuctionCloser {
	return NewAuctionCloserWithConfig(AuctionCloserConfig{
		Auctions: auctions,
		Sender:   sender,
		Log:      log,
	})
}

func NewAuctionCloserWithConfig(cfg AuctionCloserConfig) *AuctionCloser {
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock(time.UTC)
	}
	if cfg.Log == nil {
		cfg.Log = logger.New()
	}
	if cfg.CloseAfterDays == 0 {
		cfg.CloseAfterDays = DefaultCloseAfterDays
	}
	return &AuctionCloser{
		auctions:       cfg.Auctions,
		sender:         cfg.Sender,
		clock:          cfg.Clock,
		closeAfterDays: cfg.CloseAfterDays,
		log:            cfg.Log,
	}
}

// Run processes every open auction in repository order. Failures on one
// auction are recorded on the report and never stop the batch; only a failure
// to list open auctions is returned as an error.
func (c *AuctionCloser) Run(ctx context.Context) (*domain.BatchReport, error) {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	now := c.clock.Now()
	report := &domain.BatchReport{Pass: domain.PassClosing, StartedAt: now}
	c.totalClosed = 0

	auctions, err := c.auctions.ListOpen(ctx)
	if err != nil {
		c.log.Error("Failed to list open auctions", "error", err)
		return nil, fmt.Errorf("list open auctions: %w", err)
	}

	c.log.Info("Starting closing pass", "open_auctions", len(auctions), "close_after_days", c.closeAfterDays)

	for _, auction := range auctions {
		if !auction.ExpiredAt(now, c.closeAfterDays) {
			continue
		}

		outcome := c.closeAuction(ctx, auction)
		if outcome.Err == nil || outcome.Kind() == domain.KindNotification {
			c.totalClosed++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Succeeded = c.totalClosed
	report.FinishedAt = c.clock.Now()

	c.log.Info("Closing pass finished", "closed", report.Succeeded, "failures", len(report.Failures()))
	return report, nil
}

// closeAuction updates before it sends, and only sends when the update stuck.
func (c *AuctionCloser) closeAuction(ctx context.Context, auction *domain.Auction) domain.Outcome {
	auction.Close()

	if err := c.auctions.Update(ctx, auction); err != nil {
		c.log.Error("Failed to persist closed auction",
			"auction_id", auction.ID, "kind", domain.KindPersistence, "error", err)
		return domain.Outcome{
			AuctionID: auction.ID,
			Err:       domain.NewSettlementError(domain.KindPersistence, auction.ID, err),
		}
	}

	c.log.Info("Auction closed", "auction_id", auction.ID)

	if err := c.sender.Send(ctx, auction); err != nil {
		c.log.Error("Failed to notify auction closure",
			"auction_id", auction.ID, "kind", domain.KindNotification, "error", err)
		return domain.Outcome{
			AuctionID: auction.ID,
			Err:       domain.NewSettlementError(domain.KindNotification, auction.ID, err),
		}
	}

	return domain.Outcome{AuctionID: auction.ID}
}

// TotalClosed is the number of auctions persisted as closed by the last Run.
func (c *AuctionCloser) TotalClosed() int {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	return c.totalClosed
}
