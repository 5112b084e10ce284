package mysql

import (
	"auction-settlement/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

const errDuplicateEntry = 1062

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

func (r *MySQLPaymentRepository) SavePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
        INSERT INTO payments (id, auction_id, amount, scheduled_date, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	// The driver converts time.Time args to its own location, which would
	// shift a midnight date in another timezone onto the previous day.
	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.AuctionID, payment.Amount,
		payment.ScheduledDate.Format(time.DateOnly), payment.CreatedAt)
	if err != nil {
		var mysqlErr *driver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry {
			return fmt.Errorf("save payment for auction %s: %w", payment.AuctionID, domain.ErrPaymentExists)
		}
		return fmt.Errorf("save payment for auction %s: %w", payment.AuctionID, err)
	}
	return nil
}
