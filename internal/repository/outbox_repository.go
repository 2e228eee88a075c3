package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
)

func (r *Repository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE published_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		e := &domain.OutboxEvent{}
		var payload string
		var created dbTime
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		e.CreatedAt = created.Time
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d published: %w", id, err)
	}
	return nil
}
