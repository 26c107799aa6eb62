package reservations

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusSeated: true, StatusCancelled: true, StatusNoShow: true},
	StatusSeated:    {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return len(validNext[s]) == 0
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// SlotLength is the capacity window; a reservation occupies the slot its time falls in.
const SlotLength = 30 * time.Minute

func SlotStart(t time.Time) time.Time {
	return t.UTC().Truncate(SlotLength)
}

type Reservation struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=120"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone" validate:"required,min=6,max=32"`
	PartySize   int       `json:"partySize" validate:"min=1,max=20"`
	Location    string    `json:"location" validate:"required,max=100"`
	ReservedFor time.Time `json:"reservedFor" validate:"required"`
	Notes       string    `json:"notes,omitempty" validate:"max=500"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("reservation not found")
	ErrSlotFull          = errors.New("reservation slot is full")
	ErrInvalidTransition = errors.New("invalid reservation transition")
	ErrConcurrentUpdate  = errors.New("reservation was modified concurrently")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
