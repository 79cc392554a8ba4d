package events

import (
	"context"
	"database/sql"
	"errors"
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

func (r PostgresRepository) Store(ctx context.Context, event entity.Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, name, date, time, location, image_url)
		VALUES (:event_id, :name, :date, :time, :location, :image_url)
		ON CONFLICT (event_id) DO UPDATE
		SET name = EXCLUDED.name,
		    date = EXCLUDED.date,
		    time = EXCLUDED.time,
		    location = EXCLUDED.location,
		    image_url = EXCLUDED.image_url
	`, event)
	if err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}

	return nil
}

func (r PostgresRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, name, date, time, location, image_url
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Event{}, fmt.Errorf("could not get event: %w", err)
	}

	return event, nil
}
