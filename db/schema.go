package db

import "github.com/jmoiron/sqlx"

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			date VARCHAR(10) NOT NULL,
			time VARCHAR(5) NOT NULL,
			location VARCHAR(255) NOT NULL,
			image_url VARCHAR(512) NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(36) PRIMARY KEY,
			event_id VARCHAR(36) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'unpaid',
			holder_name VARCHAR(255) NOT NULL,
			holder_email VARCHAR(255) NOT NULL,
			amount_cents BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			payment_id VARCHAR(64),
			payment_method SMALLINT NOT NULL DEFAULT 0,
			attended BOOLEAN NOT NULL DEFAULT FALSE,
			arrived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS tickets_payment_id_idx
			ON tickets (payment_id) WHERE payment_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS payment_anomalies (
			anomaly_id VARCHAR(36) PRIMARY KEY,
			order_id VARCHAR(36) NOT NULL,
			payment_id VARCHAR(64) NOT NULL DEFAULT '',
			reason VARCHAR(255) NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}
