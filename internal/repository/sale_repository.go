package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
)

const saleColumns = `id, product_id, total_price, checkout_session_id, event_id, customer_email, amount_charged, currency, created_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	s := &domain.Sale{}
	var created dbTime
	if err := row.Scan(
		&s.ID,
		&s.ProductID,
		&s.TotalPrice,
		&s.SessionID,
		&s.EventID,
		&s.CustomerEmail,
		&s.AmountCharged,
		&s.Currency,
		&created,
	); err != nil {
		return nil, err
	}
	s.CreatedAt = created.Time
	return s, nil
}

func (r *Repository) CreateSale(ctx context.Context, in domain.SaleInput) (*domain.Sale, error) {
	sale := &domain.Sale{
		ProductID:     in.ProductID,
		TotalPrice:    in.TotalPrice,
		SessionID:     in.SessionID,
		EventID:       in.EventID,
		CustomerEmail: in.CustomerEmail,
		AmountCharged: in.AmountCharged,
		Currency:      in.Currency,
		CreatedAt:     time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sale transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, in.ProductID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}

	query := `INSERT INTO sales (product_id, total_price, checkout_session_id, event_id, customer_email, amount_charged, currency, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (checkout_session_id) DO NOTHING
	          RETURNING id`

	err = tx.QueryRowContext(ctx, query,
		sale.ProductID,
		sale.TotalPrice,
		sale.SessionID,
		sale.EventID,
		sale.CustomerEmail,
		sale.AmountCharged,
		sale.Currency,
		sale.CreatedAt,
	).Scan(&sale.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// the session was recorded by an earlier delivery
		_ = tx.Rollback()
		existing, getErr := r.GetSaleBySession(ctx, in.SessionID)
		if getErr != nil {
			return nil, fmt.Errorf("load duplicate sale: %w", getErr)
		}
		return existing, domain.ErrDuplicateEvent
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	payload, err := json.Marshal(domain.SaleRecordedPayload{
		SaleID:        sale.ID,
		ProductID:     sale.ProductID,
		TotalPrice:    sale.TotalPrice,
		AmountCharged: sale.AmountCharged,
		Currency:      sale.Currency,
		SessionID:     sale.SessionID,
		RecordedAt:    sale.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sale payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		fmt.Sprint(sale.ID),
		domain.EventTypeSaleRecorded,
		string(payload),
		sale.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("commit sale: %w", err)
	}
	return sale, nil
}

func (r *Repository) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sale by id: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSaleBySession(ctx context.Context, sessionID string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE checkout_session_id = $1`

	s, err := scanSale(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sale by session: %w", err)
	}
	return s, nil
}

func (r *Repository) ListSales(ctx context.Context) ([]*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*domain.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sales, nil
}

func (r *Repository) CountSalesByProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE product_id = $1`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteSale(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sale rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}
