package services

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"auction-settlement/pkg/utils"
	"context"
	"fmt"
	"sync"
	"time"
)

type PaymentSchedulerConfig struct {
	Auctions  domain.AuctionRepository
	Payments  domain.PaymentRepository
	Evaluator domain.Evaluator
	// Clock defaults to the system clock in UTC.
	Clock domain.Clock
	Log   logger.Logger
}

// PaymentScheduler creates one payment per closed auction that still lacks
// one, due on the next business day.
type PaymentScheduler struct {
	auctions  domain.AuctionRepository
	payments  domain.PaymentRepository
	evaluator domain.Evaluator
	clock     domain.Clock
	log       logger.Logger

	runMutex       sync.Mutex
	totalGenerated int
}

func NewPaymentScheduler(auctions domain.AuctionRepository, payments domain.PaymentRepository,
	evaluator domain.Evaluator, log logger.Logger) *PaymentScheduler {
	return NewPaymentSchedulerWithConfig(PaymentSchedulerConfig{
		Auctions:  auctions,
		Payments:  payments,
		Evaluator: evaluator,
		Log:       log,
	})
}

func NewPaymentSchedulerWithConfig(cfg PaymentSchedulerConfig) *PaymentScheduler {
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock(time.UTC)
	}
	if cfg.Log == nil {
		cfg.Log = logger.New()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = NewHighestBidEvaluator()
	}
	return &PaymentScheduler{
		auctions:  cfg.Auctions,
		payments:  cfg.Payments,
		evaluator: cfg.Evaluator,
		clock:     cfg.Clock,
		log:       cfg.Log,
	}
}

// Run generates payments for every auction the repository reports as closed
// and unpaid. A bad auction is recorded on the report and skipped.
func (s *PaymentScheduler) Run(ctx context.Context) (*domain.BatchReport, error) {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	report := &domain.BatchReport{Pass: domain.PassPayment, StartedAt: s.clock.Now()}
	s.totalGenerated = 0

	auctions, err := s.auctions.ListClosedAwaitingPayment(ctx)
	if err != nil {
		s.log.Error("Failed to list auctions awaiting payment", "error", err)
		return nil, fmt.Errorf("list closed auctions awaiting payment: %w", err)
	}

	s.log.Info("Starting payment pass", "awaiting_payment", len(auctions))

	for _, auction := range auctions {
		outcome := s.generatePayment(ctx, auction)
		if !outcome.Failed() {
			s.totalGenerated++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Succeeded = s.totalGenerated
	report.FinishedAt = s.clock.Now()

	s.log.Info("Payment pass finished", "generated", report.Succeeded, "failures", len(report.Failures()))
	return report, nil
}

func (s *PaymentScheduler) generatePayment(ctx context.Context, auction *domain.Auction) domain.Outcome {
	amount, err := s.evaluator.Evaluate(auction)
	if err != nil {
		s.log.Error("Failed to evaluate winning bid",
			"auction_id", auction.ID, "kind", domain.KindEvaluation, "error", err)
		return domain.Outcome{
			AuctionID: auction.ID,
			Err:       domain.NewSettlementError(domain.KindEvaluation, auction.ID, err),
		}
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		ID:            utils.GenerateID("payment"),
		AuctionID:     auction.ID,
		Amount:        amount,
		ScheduledDate: DateOf(NextBusinessDay(now)),
		CreatedAt:     now,
	}

	if err := s.payments.SavePayment(ctx, payment); err != nil {
		s.log.Error("Failed to save payment",
			"auction_id", auction.ID, "kind", domain.KindPersistence, "error", err)
		return domain.Outcome{
			AuctionID: auction.ID,
			Err:       domain.NewSettlementError(domain.KindPersistence, auction.ID, err),
		}
	}

	s.log.Info("Payment scheduled",
		"auction_id", auction.ID, "payment_id", payment.ID,
		"amount", payment.Amount, "scheduled_date", payment.ScheduledDate.Format(time.DateOnly))
	return domain.Outcome{AuctionID: auction.ID, Payment: payment}
}

// TotalGenerated is the number of payments saved by the last Run.
func (s *PaymentScheduler) TotalGenerated() int {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	return s.totalGenerated
}
