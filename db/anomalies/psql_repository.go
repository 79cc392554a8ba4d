package anomalies

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"eventure/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return PostgresRepository{db: db}
}

// Store persists a flagged notification for manual review. The anomaly id
// is the originating event's id, so redelivered flag events deduplicate.
func (r PostgresRepository) Store(ctx context.Context, anomaly entity.Anomaly) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payment_anomalies (anomaly_id, order_id, payment_id, reason, detected_at)
		VALUES (:anomaly_id, :order_id, :payment_id, :reason, :detected_at)
		ON CONFLICT (anomaly_id) DO NOTHING
	`, anomaly)
	if err != nil {
		return fmt.Errorf("could not store anomaly: %w", err)
	}

	return nil
}

func (r PostgresRepository) FindAll(ctx context.Context) ([]entity.Anomaly, error) {
	var result []entity.Anomaly
	err := r.db.SelectContext(ctx, &result, `
		SELECT anomaly_id, order_id, payment_id, reason, detected_at
		FROM payment_anomalies
		ORDER BY detected_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("could not list anomalies: %w", err)
	}

	return result, nil
}
