package mysql

import (
	"auction-settlement/internal/domain"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

func (r *MySQLAuctionRepository) ListOpen(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT id, description, closed, created_at, updated_at
        FROM auctions WHERE closed = FALSE
        ORDER BY created_at ASC
    `
	return r.listWithBids(ctx, query)
}

func (r *MySQLAuctionRepository) ListClosedAwaitingPayment(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT a.id, a.description, a.closed, a.created_at, a.updated_at
        FROM auctions a
        LEFT JOIN payments p ON p.auction_id = a.id
        WHERE a.closed = TRUE AND p.id IS NULL
        ORDER BY a.updated_at ASC
    `
	return r.listWithBids(ctx, query)
}

func (r *MySQLAuctionRepository) Update(ctx context.Context, auction *domain.Auction) error {
	query := `UPDATE auctions SET closed = ?, updated_at = ? WHERE id = ?`

	updatedAt := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, auction.Closed, updatedAt, auction.ID)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", auction.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update auction %s: %w", auction.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update auction %s: %w", auction.ID, domain.ErrAuctionNotFound)
	}

	auction.UpdatedAt = updatedAt
	return nil
}

func (r *MySQLAuctionRepository) listWithBids(ctx context.Context, query string, args ...interface{}) ([]*domain.Auction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		var auction domain.Auction

		err := rows.Scan(&auction.ID, &auction.Description, &auction.Closed,
			&auction.CreatedAt, &auction.UpdatedAt)
		if err != nil {
			return nil, err
		}

		auctions = append(auctions, &auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadBids(ctx, auctions); err != nil {
		return nil, err
	}
	return auctions, nil
}

// bidQueryBatchSize keeps each IN list well below the placeholder limit of a
// prepared statement.
var bidQueryBatchSize = 1000

// loadBids fills in the bid history of every auction, one query per batch.
func (r *MySQLAuctionRepository) loadBids(ctx context.Context, auctions []*domain.Auction) error {
	for start := 0; start < len(auctions); start += bidQueryBatchSize {
		end := start + bidQueryBatchSize
		if end > len(auctions) {
			end = len(auctions)
		}
		if err := r.loadBidBatch(ctx, auctions[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLAuctionRepository) loadBidBatch(ctx context.Context, auctions []*domain.Auction) error {
	byID := make(map[string]*domain.Auction, len(auctions))
	args := make([]interface{}, 0, len(auctions))
	for _, a := range auctions {
		byID[a.ID] = a
		args = append(args, a.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(auctions)), ",")
	query := fmt.Sprintf(`
        SELECT auction_id, bidder_id, amount, placed_at
        FROM bids
        WHERE auction_id IN (%s)
        ORDER BY placed_at ASC, id ASC
    `, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load bids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var auctionID string
		var bid domain.Bid

		if err := rows.Scan(&auctionID, &bid.BidderID, &bid.Amount, &bid.PlacedAt); err != nil {
			return fmt.Errorf("load bids: %w", err)
		}

		if auction, ok := byID[auctionID]; ok {
			auction.Bids = append(auction.Bids, bid)
		}
	}

	return rows.Err()
}
