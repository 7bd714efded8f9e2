package slot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmarkovic/slotcal/internal/event"
)

const slotColumns = `id, slot_date, max_capacity, user_ids, comments, events`

// PgStore provides database operations for slots. Writes are full-row
// updates; serialization of concurrent read-modify-write cycles on the same
// slot is the Engine's job.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new slot store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// scanSlot scans a slot row, decoding the comments and events JSONB columns.
func scanSlot(row pgx.Row) (*Slot, error) {
	s := &Slot{}
	var commentsJSON, eventsJSON []byte
	err := row.Scan(&s.ID, &s.SlotDate, &s.MaxCapacity, &s.UserIDs, &commentsJSON, &eventsJSON)
	if err != nil {
		return nil, err
	}

	if len(commentsJSON) > 0 {
		if err := json.Unmarshal(commentsJSON, &s.Comments); err != nil {
			return nil, fmt.Errorf("unmarshaling comments: %w", err)
		}
	}
	if s.Comments == nil {
		s.Comments = map[string]*string{}
	}

	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &s.Events); err != nil {
			return nil, fmt.Errorf("unmarshaling events: %w", err)
		}
	}
	if s.Events == nil {
		s.Events = []event.Event{}
	}
	if s.UserIDs == nil {
		s.UserIDs = []int64{}
	}
	return s, nil
}

func marshalSlot(s *Slot) (commentsJSON, eventsJSON []byte, err error) {
	comments := s.Comments
	if comments == nil {
		comments = map[string]*string{}
	}
	commentsJSON, err = json.Marshal(comments)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling comments: %w", err)
	}

	events := s.Events
	if events == nil {
		events = []event.Event{}
	}
	eventsJSON, err = json.Marshal(events)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling events: %w", err)
	}
	return commentsJSON, eventsJSON, nil
}

// Create provisions a new slot with no reservations.
func (s *PgStore) Create(ctx context.Context, in CreateSlotInput) (*Slot, error) {
	query := fmt.Sprintf(`INSERT INTO slots (slot_date, max_capacity, user_ids, comments, events)
		VALUES ($1, $2, '{}', '{}', '[]')
		RETURNING %s`, slotColumns)

	sl, err := scanSlot(s.pool.QueryRow(ctx, query, in.SlotDate, in.MaxCapacity))
	if err != nil {
		return nil, fmt.Errorf("creating slot: %w", err)
	}
	return sl, nil
}

// GetByID retrieves a slot by primary key.
func (s *PgStore) GetByID(ctx context.Context, id int64) (*Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM slots WHERE id = $1`, slotColumns)
	sl, err := scanSlot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting slot by id: %w", err)
	}
	return sl, nil
}

// Update writes the slot's mutable state back as a full row.
func (s *PgStore) Update(ctx context.Context, sl *Slot) error {
	commentsJSON, eventsJSON, err := marshalSlot(sl)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE slots SET user_ids = $1, comments = $2, events = $3 WHERE id = $4`,
		sl.UserIDs, commentsJSON, eventsJSON, sl.ID,
	)
	if err != nil {
		return fmt.Errorf("updating slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all slots ordered by date.
func (s *PgStore) List(ctx context.Context) ([]*Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM slots ORDER BY slot_date, id`, slotColumns)
	return s.queryMany(ctx, query)
}

// ListByUser returns all slots the given user has reserved.
func (s *PgStore) ListByUser(ctx context.Context, userID int64) ([]*Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM slots WHERE $1 = ANY(user_ids) ORDER BY slot_date, id`, slotColumns)
	return s.queryMany(ctx, query, userID)
}

// ListRange returns all slots dated within [from, to] inclusive. The bounds
// are calendar days; a slot carrying a time-of-day on the final day is still
// within the range.
func (s *PgStore) ListRange(ctx context.Context, from, to time.Time) ([]*Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM slots WHERE slot_date >= $1 AND slot_date < $2 ORDER BY slot_date, id`, slotColumns)
	return s.queryMany(ctx, query, from, to.AddDate(0, 0, 1))
}

func (s *PgStore) queryMany(ctx context.Context, query string, args ...any) ([]*Slot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning slot row: %w", err)
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}
