package slot

import (
	"errors"
	"strconv"
	"time"

	"github.com/tmarkovic/slotcal/internal/event"
)

// Reservation and attachment errors.
var (
	ErrNotFound             = errors.New("slot not found")
	ErrCapacityExceeded     = errors.New("slot is fully booked")
	ErrAlreadyReserved      = errors.New("user already reserved this slot")
	ErrUserNotInSlot        = errors.New("user not found in this slot")
	ErrEventAlreadyAttached = errors.New("event already attached to this slot")
)

// Slot is a calendar-dated, capacity-bounded reservation unit. Reservation
// state is implicit in UserIDs and Comments; there is no separate status
// field. Invariants:
//
//   - len(UserIDs) <= MaxCapacity
//   - every key in Comments is the id of a member of UserIDs
//   - Events contains no duplicate event ids
type Slot struct {
	ID          int64              `json:"id"`
	SlotDate    time.Time          `json:"slot_date"`
	MaxCapacity int                `json:"max_capacity"`
	UserIDs     []int64            `json:"user_ids"`
	Comments    map[string]*string `json:"comments"` // keyed by decimal user id
	Events      []event.Event      `json:"events"`
}

// CreateSlotInput holds the fields required to provision a slot.
type CreateSlotInput struct {
	SlotDate    time.Time `json:"slot_date"`
	MaxCapacity int       `json:"max_capacity"`
}

// EditInput is a partial update of a slot. Field presence, not truthiness,
// determines "provided": a nil pointer leaves the field untouched, while an
// explicit empty list clears it.
type EditInput struct {
	UserIDs  *[]int64            `json:"userIds"`
	Events   *[]EventRef         `json:"events"`
	Comments *map[string]*string `json:"comments"`
}

// EventRef names an event by id. The id is the only trusted field of a
// client-supplied event; everything else is re-resolved from the store.
type EventRef struct {
	ID int64 `json:"id"`
}

// CommentKey converts a user id to its comments-map key.
func CommentKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// HasUser reports whether the user currently holds a reservation.
func (s *Slot) HasUser(userID int64) bool {
	for _, id := range s.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasEvent reports whether an event with the given id is attached.
func (s *Slot) HasEvent(eventID int64) bool {
	for _, e := range s.Events {
		if e.ID == eventID {
			return true
		}
	}
	return false
}

// pruneComments drops every comment whose user is no longer a member.
func (s *Slot) pruneComments() {
	if s.Comments == nil {
		s.Comments = map[string]*string{}
		return
	}
	for key := range s.Comments {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || !s.HasUser(id) {
			delete(s.Comments, key)
		}
	}
}

// dedupeIDs returns ids with duplicates removed, first occurrence wins.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
