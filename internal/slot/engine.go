package slot

import (
	"context"
	"sync"

	"github.com/tmarkovic/slotcal/internal/event"
)

// Store is the persistence interface the Engine operates over. It exists to
// allow testing the reservation rules without a real database.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Slot, error)
	Update(ctx context.Context, s *Slot) error
}

// EventResolver re-resolves client-supplied event ids against the event
// store. Only the id of a client event is trusted.
type EventResolver interface {
	GetByID(ctx context.Context, id int64) (*event.Event, error)
	GetByIDs(ctx context.Context, ids []int64) ([]event.Event, error)
}

// Engine enforces the capacity and membership invariants on every slot
// mutation. All mutations on the same slot id are serialized by a per-slot
// mutex, so the load/check/write cycle reads its own writes and two
// concurrent reservations cannot both pass the capacity check.
type Engine struct {
	store  Store
	events EventResolver

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates an Engine over the given store and event resolver.
func NewEngine(store Store, events EventResolver) *Engine {
	return &Engine{
		store:  store,
		events: events,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// slotLock returns the mutex for the given slot id, creating it on first use.
func (e *Engine) slotLock(slotID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[slotID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[slotID] = l
	}
	return l
}

// Reserve adds the user to the slot with an optional comment.
//
// Fails with ErrNotFound when the slot is absent, ErrAlreadyReserved when
// the user already holds a reservation on it, and ErrCapacityExceeded when
// the slot is full.
func (e *Engine) Reserve(ctx context.Context, slotID, userID int64, comment *string) (*Slot, error) {
	l := e.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	s, err := e.store.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if s.HasUser(userID) {
		return nil, ErrAlreadyReserved
	}
	if len(s.UserIDs) >= s.MaxCapacity {
		return nil, ErrCapacityExceeded
	}

	s.UserIDs = append(s.UserIDs, userID)
	if s.Comments == nil {
		s.Comments = map[string]*string{}
	}
	s.Comments[CommentKey(userID)] = comment

	if err := e.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Unreserve removes the user from the slot and prunes their comment.
//
// Membership removal is strict: an absent user fails with ErrUserNotInSlot
// so the caller learns their view of the slot is stale. Compare DetachEvent.
func (e *Engine) Unreserve(ctx context.Context, slotID, userID int64) (*Slot, error) {
	l := e.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	s, err := e.store.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if !s.HasUser(userID) {
		return nil, ErrUserNotInSlot
	}

	kept := s.UserIDs[:0]
	for _, id := range s.UserIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	s.UserIDs = kept
	delete(s.Comments, CommentKey(userID))

	if err := e.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Edit applies a partial update. Omitted (nil) fields keep their previous
// value; an explicit empty list clears. A provided event list is re-resolved
// from the event store by id and replaces the attachment set wholesale; ids
// with no matching event are dropped, so a list of unknown ids yields zero
// attached events rather than an error. Comments are pruned to the resulting
// membership.
func (e *Engine) Edit(ctx context.Context, slotID int64, in EditInput) (*Slot, error) {
	l := e.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	s, err := e.store.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if in.UserIDs != nil {
		ids := dedupeIDs(*in.UserIDs)
		if len(ids) > s.MaxCapacity {
			return nil, ErrCapacityExceeded
		}
		s.UserIDs = ids
	}

	if in.Comments != nil {
		comments := make(map[string]*string, len(*in.Comments))
		for k, v := range *in.Comments {
			comments[k] = v
		}
		s.Comments = comments
	}
	s.pruneComments()

	if in.Events != nil {
		ids := make([]int64, 0, len(*in.Events))
		for _, ref := range *in.Events {
			ids = append(ids, ref.ID)
		}
		resolved, err := e.events.GetByIDs(ctx, dedupeIDs(ids))
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			resolved = []event.Event{}
		}
		s.Events = resolved
	}

	if err := e.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// AttachEvent appends a snapshot of the event to the slot. The copy is
// denormalized: later edits to the event do not propagate to the slot.
//
// Fails with ErrNotFound / event.ErrNotFound when slot or event is absent,
// and ErrEventAlreadyAttached on a duplicate id.
func (e *Engine) AttachEvent(ctx context.Context, slotID, eventID int64) (*Slot, error) {
	l := e.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	s, err := e.store.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	ev, err := e.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.HasEvent(eventID) {
		return nil, ErrEventAlreadyAttached
	}

	s.Events = append(s.Events, *ev)

	if err := e.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// DetachEvent removes the event with the given id from the slot.
//
// Attachment removal is idempotent: detaching an absent event id succeeds
// without touching the row, since the caller's goal state is "not attached".
// Only the slot itself must exist.
func (e *Engine) DetachEvent(ctx context.Context, slotID, eventID int64) (*Slot, error) {
	l := e.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	s, err := e.store.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if !s.HasEvent(eventID) {
		return s, nil
	}

	kept := s.Events[:0]
	for _, ev := range s.Events {
		if ev.ID != eventID {
			kept = append(kept, ev)
		}
	}
	s.Events = kept

	if err := e.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
