package slot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tmarkovic/slotcal/internal/event"
)

// memStore is an in-memory Store. It hands out deep copies, like a real
// store scanning fresh rows, so the engine's serialization discipline is
// what keeps concurrent mutations consistent.
type memStore struct {
	mu    sync.Mutex
	slots map[int64]*Slot
}

func newMemStore(slots ...*Slot) *memStore {
	m := &memStore{slots: make(map[int64]*Slot)}
	for _, s := range slots {
		m.slots[s.ID] = copySlot(s)
	}
	return m
}

func copySlot(s *Slot) *Slot {
	c := &Slot{
		ID:          s.ID,
		SlotDate:    s.SlotDate,
		MaxCapacity: s.MaxCapacity,
		UserIDs:     append([]int64{}, s.UserIDs...),
		Comments:    make(map[string]*string, len(s.Comments)),
		Events:      append([]event.Event{}, s.Events...),
	}
	for k, v := range s.Comments {
		c.Comments[k] = v
	}
	return c
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySlot(s), nil
}

func (m *memStore) Update(_ context.Context, s *Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[s.ID]; !ok {
		return ErrNotFound
	}
	m.slots[s.ID] = copySlot(s)
	return nil
}

// memEvents is an in-memory EventResolver.
type memEvents struct {
	events map[int64]event.Event
}

func newMemEvents(events ...event.Event) *memEvents {
	m := &memEvents{events: make(map[int64]event.Event)}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *memEvents) GetByID(_ context.Context, id int64) (*event.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, event.ErrNotFound
	}
	return &e, nil
}

func (m *memEvents) GetByIDs(_ context.Context, ids []int64) ([]event.Event, error) {
	var out []event.Event
	for _, id := range ids {
		if e, ok := m.events[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func testSlot(id int64, capacity int) *Slot {
	return &Slot{
		ID:          id,
		SlotDate:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		MaxCapacity: capacity,
		UserIDs:     []int64{},
		Comments:    map[string]*string{},
		Events:      []event.Event{},
	}
}

func strPtr(s string) *string { return &s }

// --- Reserve ---

func TestReserve(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	s, err := engine.Reserve(ctx, 1, 10, strPtr("bringing snacks"))
	if err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	if !s.HasUser(10) {
		t.Error("user 10 should be reserved")
	}
	if c := s.Comments[CommentKey(10)]; c == nil || *c != "bringing snacks" {
		t.Errorf("expected comment for user 10, got %v", c)
	}
}

func TestReserve_NilComment(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	s, err := engine.Reserve(context.Background(), 1, 10, nil)
	if err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}

	// A missing comment is stored as an explicit null, keyed by the user.
	c, ok := s.Comments[CommentKey(10)]
	if !ok {
		t.Fatal("expected comments entry for user 10")
	}
	if c != nil {
		t.Errorf("expected nil comment, got %q", *c)
	}
}

func TestReserve_SlotNotFound(t *testing.T) {
	engine := NewEngine(newMemStore(), newMemEvents())

	if _, err := engine.Reserve(context.Background(), 99, 10, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReserve_Duplicate(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, 1, 10, nil); err != nil {
		t.Fatalf("first Reserve() error: %v", err)
	}
	if _, err := engine.Reserve(ctx, 1, 10, nil); !errors.Is(err, ErrAlreadyReserved) {
		t.Errorf("expected ErrAlreadyReserved, got %v", err)
	}
}

func TestReserve_CapacityExceeded(t *testing.T) {
	store := newMemStore(testSlot(1, 1))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, 1, 10, nil); err != nil {
		t.Fatalf("first Reserve() error: %v", err)
	}
	if _, err := engine.Reserve(ctx, 1, 11, nil); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
}

// TestReserve_ConcurrentCapacity is the capacity-invariant property: with
// max_capacity=1 and two concurrent reservations by distinct users, exactly
// one succeeds and the other fails with ErrCapacityExceeded.
func TestReserve_ConcurrentCapacity(t *testing.T) {
	store := newMemStore(testSlot(1, 1))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = engine.Reserve(ctx, 1, int64(10+n), nil)
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, rejected)
	}

	s, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.UserIDs) != 1 {
		t.Fatalf("capacity invariant violated: %d users in a capacity-1 slot", len(s.UserIDs))
	}
}

// TestReserve_ConcurrentMany hammers one slot with many goroutines and
// checks that the invariant holds for larger capacities too.
func TestReserve_ConcurrentMany(t *testing.T) {
	const capacity = 5
	const attempts = 40

	store := newMemStore(testSlot(1, capacity))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := engine.Reserve(ctx, 1, int64(n), nil); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != capacity {
		t.Errorf("expected %d successful reservations, got %d", capacity, successes)
	}

	s, _ := store.GetByID(ctx, 1)
	if len(s.UserIDs) > capacity {
		t.Fatalf("capacity invariant violated: %d > %d", len(s.UserIDs), capacity)
	}
}

// --- Unreserve ---

func TestUnreserve_PrunesComment(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, 1, 10, strPtr("hello")); err != nil {
		t.Fatal(err)
	}

	s, err := engine.Unreserve(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Unreserve() error: %v", err)
	}
	if s.HasUser(10) {
		t.Error("user 10 should be removed from user_ids")
	}
	if _, ok := s.Comments[CommentKey(10)]; ok {
		t.Error("comment for user 10 should be pruned")
	}
}

func TestUnreserve_UserNotInSlot(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	if _, err := engine.Unreserve(context.Background(), 1, 10); !errors.Is(err, ErrUserNotInSlot) {
		t.Errorf("expected ErrUserNotInSlot, got %v", err)
	}
}

func TestUnreserve_SlotNotFound(t *testing.T) {
	engine := NewEngine(newMemStore(), newMemEvents())

	if _, err := engine.Unreserve(context.Background(), 99, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Edit ---

func TestEdit_OmittedFieldsKeepValues(t *testing.T) {
	store := newMemStore(testSlot(1, 3))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, 1, 10, strPtr("keep me")); err != nil {
		t.Fatal(err)
	}

	s, err := engine.Edit(ctx, 1, EditInput{})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if !s.HasUser(10) {
		t.Error("membership should be untouched when userIds is omitted")
	}
	if c := s.Comments[CommentKey(10)]; c == nil || *c != "keep me" {
		t.Error("comments should be untouched when omitted")
	}
}

func TestEdit_EmptyListClearsMembership(t *testing.T) {
	store := newMemStore(testSlot(1, 3))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, 1, 10, strPtr("gone soon")); err != nil {
		t.Fatal(err)
	}

	// An explicit empty list is a real clearing, not "unset".
	empty := []int64{}
	s, err := engine.Edit(ctx, 1, EditInput{UserIDs: &empty})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if len(s.UserIDs) != 0 {
		t.Errorf("expected no users, got %v", s.UserIDs)
	}
	if len(s.Comments) != 0 {
		t.Errorf("comments of removed users should be pruned, got %v", s.Comments)
	}
}

func TestEdit_MembershipBeyondCapacity(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	ids := []int64{1, 2, 3}
	if _, err := engine.Edit(context.Background(), 1, EditInput{UserIDs: &ids}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestEdit_DedupesUserIDs(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	ids := []int64{7, 7, 7}
	s, err := engine.Edit(context.Background(), 1, EditInput{UserIDs: &ids})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if len(s.UserIDs) != 1 || s.UserIDs[0] != 7 {
		t.Errorf("expected deduped membership [7], got %v", s.UserIDs)
	}
}

func TestEdit_EventsResolvedFromStore(t *testing.T) {
	stored := event.Event{ID: 5, Type: "tournament", Game: "cs2", Urgency: 2}
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents(stored))
	ctx := context.Background()

	// Client-supplied event bodies are ignored; only the id is trusted.
	refs := []EventRef{{ID: 5}}
	s, err := engine.Edit(ctx, 1, EditInput{Events: &refs})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if len(s.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(s.Events))
	}
	if s.Events[0] != stored {
		t.Errorf("expected store's representation %+v, got %+v", stored, s.Events[0])
	}

	// Round trip through the store.
	reloaded, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Events) != 1 || reloaded.Events[0] != stored {
		t.Errorf("round trip lost the resolved event: %+v", reloaded.Events)
	}
}

func TestEdit_UnknownEventIDsYieldZeroEvents(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	refs := []EventRef{{ID: 404}, {ID: 405}}
	s, err := engine.Edit(context.Background(), 1, EditInput{Events: &refs})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if len(s.Events) != 0 {
		t.Errorf("expected zero events for unknown ids, got %v", s.Events)
	}
}

func TestEdit_CommentsPrunedToMembership(t *testing.T) {
	store := newMemStore(testSlot(1, 3))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	ids := []int64{10}
	comments := map[string]*string{
		"10": strPtr("member"),
		"11": strPtr("not a member"),
	}
	s, err := engine.Edit(ctx, 1, EditInput{UserIDs: &ids, Comments: &comments})
	if err != nil {
		t.Fatalf("Edit() error: %v", err)
	}
	if _, ok := s.Comments["10"]; !ok {
		t.Error("comment for member 10 should be kept")
	}
	if _, ok := s.Comments["11"]; ok {
		t.Error("comment for non-member 11 should be pruned")
	}
}

// --- Attach / Detach ---

func TestAttachEvent_Dedupe(t *testing.T) {
	ev := event.Event{ID: 3, Type: "scrim"}
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents(ev))
	ctx := context.Background()

	if _, err := engine.AttachEvent(ctx, 1, 3); err != nil {
		t.Fatalf("first AttachEvent() error: %v", err)
	}
	if _, err := engine.AttachEvent(ctx, 1, 3); !errors.Is(err, ErrEventAlreadyAttached) {
		t.Errorf("expected ErrEventAlreadyAttached, got %v", err)
	}

	// Detach then attach succeeds again.
	if _, err := engine.DetachEvent(ctx, 1, 3); err != nil {
		t.Fatalf("DetachEvent() error: %v", err)
	}
	if _, err := engine.AttachEvent(ctx, 1, 3); err != nil {
		t.Fatalf("re-AttachEvent() error: %v", err)
	}
}

func TestAttachEvent_Missing(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())
	ctx := context.Background()

	if _, err := engine.AttachEvent(ctx, 99, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("absent slot: expected ErrNotFound, got %v", err)
	}
	if _, err := engine.AttachEvent(ctx, 1, 3); !errors.Is(err, event.ErrNotFound) {
		t.Errorf("absent event: expected event.ErrNotFound, got %v", err)
	}
}

func TestAttachEvent_SnapshotIsDenormalized(t *testing.T) {
	ev := event.Event{ID: 3, Type: "scrim", Game: "valorant"}
	events := newMemEvents(ev)
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, events)
	ctx := context.Background()

	if _, err := engine.AttachEvent(ctx, 1, 3); err != nil {
		t.Fatal(err)
	}

	// Mutate the event store; the slot keeps its snapshot.
	events.events[3] = event.Event{ID: 3, Type: "scrim", Game: "renamed"}

	s, _ := store.GetByID(ctx, 1)
	if s.Events[0].Game != "valorant" {
		t.Errorf("attached snapshot should not track event edits, got %q", s.Events[0].Game)
	}
}

func TestDetachEvent_IdempotentOnAbsentID(t *testing.T) {
	store := newMemStore(testSlot(1, 2))
	engine := NewEngine(store, newMemEvents())

	if _, err := engine.DetachEvent(context.Background(), 1, 42); err != nil {
		t.Errorf("detaching an absent event id should be a no-op success, got %v", err)
	}
}

func TestDetachEvent_SlotNotFound(t *testing.T) {
	engine := NewEngine(newMemStore(), newMemEvents())

	if _, err := engine.DetachEvent(context.Background(), 99, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
