package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tmarkovic/slotcal/internal/auth"
	"github.com/tmarkovic/slotcal/internal/event"
	"github.com/tmarkovic/slotcal/internal/metrics"
	"github.com/tmarkovic/slotcal/internal/ratelimit"
	"github.com/tmarkovic/slotcal/internal/slot"
	"github.com/tmarkovic/slotcal/internal/user"
)

// UserStore is the user persistence surface the handlers need.
type UserStore interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	Usernames(ctx context.Context, ids []int64) (map[int64]string, error)
	Update(ctx context.Context, id int64, in user.UpdateUserInput) (*user.User, error)
	Delete(ctx context.Context, id int64) error
}

// EventStore is the event persistence surface the handlers need.
type EventStore interface {
	Create(ctx context.Context, in event.CreateEventInput) (*event.Event, error)
	List(ctx context.Context) ([]*event.Event, error)
	Update(ctx context.Context, id int64, in event.CreateEventInput) (*event.Event, error)
	Delete(ctx context.Context, id int64) error
}

// SlotReader covers the read-only slot queries.
type SlotReader interface {
	GetByID(ctx context.Context, id int64) (*slot.Slot, error)
	List(ctx context.Context) ([]*slot.Slot, error)
	ListByUser(ctx context.Context, userID int64) ([]*slot.Slot, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*slot.Slot, error)
}

// Reservations covers the slot mutations, serialized by the engine.
type Reservations interface {
	Reserve(ctx context.Context, slotID, userID int64, comment *string) (*slot.Slot, error)
	Unreserve(ctx context.Context, slotID, userID int64) (*slot.Slot, error)
	Edit(ctx context.Context, slotID int64, in slot.EditInput) (*slot.Slot, error)
	AttachEvent(ctx context.Context, slotID, eventID int64) (*slot.Slot, error)
	DetachEvent(ctx context.Context, slotID, eventID int64) (*slot.Slot, error)
}

// SessionRegistry covers the refresh-token session surface.
type SessionRegistry interface {
	Create(ctx context.Context, token string, expiresAt time.Time) error
	IsValid(token string) bool
	Revoke(ctx context.Context, token string) error
	Len() int
}

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users    UserStore
	Events   EventStore
	Slots    SlotReader
	Engine   Reservations
	Sessions SessionRegistry
	Issuer   *auth.Issuer
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
	DB       Pinger

	RefreshTTL     time.Duration
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	authH := newAuthHandler(deps.Users, deps.Sessions, deps.Issuer, deps.Metrics, deps.RefreshTTL)
	slots := newSlotsHandler(deps.Slots, deps.Engine, deps.Users, deps.Metrics)
	events := newEventsHandler(deps.Events)
	users := newUsersHandler(deps.Users)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		db := "connected"
		status := http.StatusOK
		if deps.DB != nil {
			if err := deps.DB.Ping(r.Context()); err != nil {
				db = "disconnected"
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, map[string]string{"status": "ok", "database": db})
	})

	// Auth routes, rate limited per client IP.
	r.Group(func(ar chi.Router) {
		if deps.Limiter != nil {
			ar.Use(ratelimit.Middleware(deps.Limiter))
		}
		ar.Post("/register", authH.Register)
		ar.Post("/login", authH.Login)
		ar.Post("/token", authH.RefreshAccessToken)
		ar.Delete("/logout", authH.Logout)
		ar.Post("/forgot-password", authH.ForgotPassword)
	})

	// Slot routes.
	r.Get("/slots", slots.ListSlots)
	r.Get("/slots/range", slots.ListSlotsInRange)
	r.Get("/slots/user/{userID}", slots.ListSlotsByUser)
	r.Get("/slots/{id}", slots.GetSlot)
	r.Get("/slots-for-month", slots.ListSlotsForMonth)
	r.Put("/slots/{id}/reserve", slots.Reserve)
	r.Put("/slots/{id}/unreserve", slots.Unreserve)
	r.Put("/slots/{id}/edit", slots.Edit)
	r.Post("/slots/{id}/events/{eventID}", slots.AttachEvent)
	r.Delete("/slots/{id}/events/{eventID}", slots.DetachEvent)

	// Event routes. Mutations require an access token.
	r.Get("/events", events.ListEvents)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(deps.Issuer))
		pr.Post("/events", events.CreateEvent)
		pr.Put("/events/{id}", events.UpdateEvent)
		pr.Delete("/events/{id}", events.DeleteEvent)
	})

	// User routes. Mutations require an access token.
	r.Get("/users", users.ListUsers)
	r.Get("/users/{id}", users.GetUser)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(deps.Issuer))
		pr.Post("/users", users.CreateUser)
		pr.Put("/users/{id}", users.UpdateUser)
		pr.Delete("/users/{id}", users.DeleteUser)
	})

	// Metrics.
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
		r.Get("/metrics/summary", deps.Metrics.SummaryHandler())
	}

	return r
}
