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

const productColumns = `id, title, price, image_url, pdf_url, video_urls, external_product_id, external_price_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var videos string
	var created dbTime
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Price,
		&p.ImageURL,
		&p.PdfURL,
		&videos,
		&p.ExternalProductID,
		&p.ExternalPriceID,
		&created,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = created.Time
	if videos != "" {
		if err := json.Unmarshal([]byte(videos), &p.VideoURLs); err != nil {
			return nil, fmt.Errorf("unmarshal video urls: %w", err)
		}
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *domain.Product) error {
	videos := ""
	if len(product.VideoURLs) > 0 {
		data, err := json.Marshal(product.VideoURLs)
		if err != nil {
			return fmt.Errorf("failed to marshal video urls: %w", err)
		}
		videos = string(data)
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO products (title, price, image_url, pdf_url, video_urls, external_product_id, external_price_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		product.Title,
		product.Price,
		product.ImageURL,
		product.PdfURL,
		videos,
		product.ExternalProductID,
		product.ExternalPriceID,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// DeleteProduct removes the product; its sales go with it.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
