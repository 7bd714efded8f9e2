package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, type, urgency, game, description, date_start, date_end, partner`

// Store provides database operations for events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new event store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.ID,
		&e.Type,
		&e.Urgency,
		&e.Game,
		&e.Description,
		&e.DateStart,
		&e.DateEnd,
		&e.Partner,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new event and returns the full row.
func (s *Store) Create(ctx context.Context, in CreateEventInput) (*Event, error) {
	query := fmt.Sprintf(`INSERT INTO events
		(type, urgency, game, description, date_start, date_end, partner)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, eventColumns)

	e, err := scanEvent(s.pool.QueryRow(ctx, query,
		in.Type, in.Urgency, in.Game, in.Description, in.DateStart, in.DateEnd, in.Partner))
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return e, nil
}

// GetByID retrieves an event by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	e, err := scanEvent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting event by id: %w", err)
	}
	return e, nil
}

// GetByIDs retrieves all events matching the given ids. Ids with no row are
// silently skipped; the caller decides what absence means.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) ([]Event, error) {
	if len(ids) == 0 {
		return []Event{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = ANY($1) ORDER BY id`, eventColumns)
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("getting events by ids: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// List returns all events ordered by start date.
func (s *Store) List(ctx context.Context) ([]*Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY date_start, id`, eventColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update replaces all mutable fields of the event with the given id.
func (s *Store) Update(ctx context.Context, id int64, in CreateEventInput) (*Event, error) {
	query := fmt.Sprintf(`UPDATE events
		SET type = $1, urgency = $2, game = $3, description = $4,
		    date_start = $5, date_end = $6, partner = $7
		WHERE id = $8
		RETURNING %s`, eventColumns)

	e, err := scanEvent(s.pool.QueryRow(ctx, query,
		in.Type, in.Urgency, in.Game, in.Description, in.DateStart, in.DateEnd, in.Partner, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return e, nil
}

// Delete removes an event by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
