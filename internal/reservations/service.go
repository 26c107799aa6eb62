package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
)

const DefaultMaxPartiesPerSlot = 10

type Service struct {
	repo       Repository
	maxParties int
	validate   *validator.Validate
	log        *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, maxParties int, log *slog.Logger) *Service {
	if maxParties <= 0 {
		maxParties = DefaultMaxPartiesPerSlot
	}
	if log == nil {
		log = logging.New("reservations")
	}
	return &Service{
		repo:       repo,
		maxParties: maxParties,
		validate:   validator.New(),
		log:        log,
		now:        time.Now,
	}
}

type CreateInput struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	PartySize   int       `json:"partySize"`
	Location    string    `json:"location"`
	ReservedFor time.Time `json:"reservedFor"`
	Notes       string    `json:"notes,omitempty"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Reservation, error) {
	now := s.now().UTC()
	r := Reservation{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		PartySize:   in.PartySize,
		Location:    strings.TrimSpace(in.Location),
		ReservedFor: in.ReservedFor.UTC(),
		Notes:       strings.TrimSpace(in.Notes),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Reservation{}, &ValidationError{Field: jsonName(verrs[0].Field()), Reason: "failed " + verrs[0].Tag()}
		}
		return Reservation{}, &ValidationError{Field: "reservation", Reason: err.Error()}
	}
	if !r.ReservedFor.After(now) {
		return Reservation{}, &ValidationError{Field: "reservedFor", Reason: "must be in the future"}
	}

	if err := s.repo.CreateWithinCapacity(ctx, &r, s.maxParties); err != nil {
		if errors.Is(err, ErrSlotFull) {
			logging.FromCtx(ctx).Info("reservation slot full",
				"location", r.Location, "slot", SlotStart(r.ReservedFor))
		}
		return Reservation{}, err
	}
	logging.FromCtx(ctx).Info("reservation created",
		"reservation_id", r.ID, "location", r.Location, "reserved_for", r.ReservedFor, "party_size", r.PartySize)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Reservation{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]Reservation, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	return s.repo.ListByEmail(ctx, email)
}

// ListForDay returns the reservations of one location on the UTC calendar day containing day.
func (s *Service) ListForDay(ctx context.Context, location string, day time.Time) ([]Reservation, error) {
	if strings.TrimSpace(location) == "" {
		return nil, &ValidationError{Field: "location", Reason: "is required"}
	}
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.ListBetween(ctx, location, start, start.Add(24*time.Hour))
}

func (s *Service) Transition(ctx context.Context, id string, to Status) (Reservation, error) {
	if !to.Valid() {
		return Reservation{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !CanTransition(r.Status, to) {
		return Reservation{}, &InvalidTransitionError{From: r.Status, To: to}
	}
	now := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, r.Status, to, now)
	if err != nil {
		return Reservation{}, err
	}
	if !ok {
		return Reservation{}, ErrConcurrentUpdate
	}
	logging.FromCtx(ctx).Info("reservation transitioned", "reservation_id", id, "from", r.Status, "to", to)
	r.Status, r.UpdatedAt = to, now
	return r, nil
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
