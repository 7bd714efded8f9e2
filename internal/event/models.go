package event

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("event not found")
	ErrTypeRequired    = errors.New("event type is required")
	ErrDatesRequired   = errors.New("dateStart and dateEnd are required")
	ErrDatesOutOfOrder = errors.New("dateEnd must not be before dateStart")
)

// Event is an independent entity that may be attached to zero or more slots.
type Event struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Urgency     int       `json:"urgency"`
	Game        string    `json:"game"`
	Description string    `json:"description"`
	DateStart   time.Time `json:"dateStart"`
	DateEnd     time.Time `json:"dateEnd"`
	Partner     bool      `json:"partner"`
}

// CreateEventInput holds the fields required to create a new event.
type CreateEventInput struct {
	Type        string    `json:"type"`
	Urgency     int       `json:"urgency"`
	Game        string    `json:"game"`
	Description string    `json:"description"`
	DateStart   time.Time `json:"dateStart"`
	DateEnd     time.Time `json:"dateEnd"`
	Partner     bool      `json:"partner"`
}

// Validate checks that the input describes a well-formed event.
func (in CreateEventInput) Validate() error {
	if strings.TrimSpace(in.Type) == "" {
		return ErrTypeRequired
	}
	if in.DateStart.IsZero() || in.DateEnd.IsZero() {
		return ErrDatesRequired
	}
	if in.DateEnd.Before(in.DateStart) {
		return ErrDatesOutOfOrder
	}
	return nil
}
