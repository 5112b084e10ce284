package services

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

var errStorageDown = errors.New("storage down")

// callLog records collaborator calls across fakes so tests can check order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeAuctionRepo struct {
	log         *callLog
	auctions    []*domain.Auction
	failUpdates map[string]bool
	failAll     bool
	listErr     error
	updated     map[string]int
}

func newFakeAuctionRepo(log *callLog, auctions ...*domain.Auction) *fakeAuctionRepo {
	return &fakeAuctionRepo{
		log:         log,
		auctions:    auctions,
		failUpdates: make(map[string]bool),
		updated:     make(map[string]int),
	}
}

func (r *fakeAuctionRepo) ListOpen(ctx context.Context) ([]*domain.Auction, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var open []*domain.Auction
	for _, a := range r.auctions {
		if !a.Closed {
			open = append(open, a)
		}
	}
	return open, nil
}

func (r *fakeAuctionRepo) Update(ctx context.Context, auction *domain.Auction) error {
	r.log.add("update:" + auction.ID)
	if r.failAll || r.failUpdates[auction.ID] {
		return errStorageDown
	}
	r.updated[auction.ID]++
	return nil
}

func (r *fakeAuctionRepo) ListClosedAwaitingPayment(ctx context.Context) ([]*domain.Auction, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var closed []*domain.Auction
	for _, a := range r.auctions {
		if a.Closed {
			closed = append(closed, a)
		}
	}
	return closed, nil
}

type fakeSender struct {
	log      *callLog
	failFor  map[string]bool
	notified []string
}

func newFakeSender(log *callLog) *fakeSender {
	return &fakeSender{log: log, failFor: make(map[string]bool)}
}

func (s *fakeSender) Send(ctx context.Context, auction *domain.Auction) error {
	s.log.add("send:" + auction.ID)
	if s.failFor[auction.ID] {
		return errors.New("smtp unavailable")
	}
	s.notified = append(s.notified, auction.ID)
	return nil
}

type fakePaymentRepo struct {
	failFor map[string]bool
	saved   []*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{failFor: make(map[string]bool)}
}

func (r *fakePaymentRepo) SavePayment(ctx context.Context, payment *domain.Payment) error {
	if r.failFor[payment.AuctionID] {
		return errStorageDown
	}
	r.saved = append(r.saved, payment)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func testLogger(t *testing.T) logger.Logger {
	return logger.NewFromZap(zaptest.NewLogger(t))
}

func auctionCreatedAt(id string, created time.Time, bids ...float64) *domain.Auction {
	a := &domain.Auction{ID: id, Description: id, CreatedAt: created}
	for i, amount := range bids {
		a.Bids = append(a.Bids, domain.Bid{
			BidderID: "bidder",
			Amount:   amount,
			PlacedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}
	return a
}
