package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
	"github.com/ariefcatur/go-restaurant-orders/internal/reservations"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty")
		}
		return errBadRequest(fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequest(msg) }

// respondError maps domain errors onto status codes; anything unknown is a 500
// and its detail stays in the log.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var ove *orders.ValidationError
	var rve *reservations.ValidationError
	switch {
	case errors.As(err, &ove):
		resp.Field = ove.Field
	case errors.As(err, &rve):
		resp.Field = rve.Field
	}

	l := logging.FromCtx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "error", err)
		resp.Error = "internal server error"
	} else {
		l.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, orders.ErrValidation), errors.Is(err, reservations.ErrValidation),
		errors.Is(err, cart.ErrInvalidLine), errors.Is(err, catalog.ErrInvalidSelection),
		errors.Is(err, catalog.ErrMalformedRecord), errors.Is(err, pricing.ErrInvalidTip):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, cart.ErrMissingSession):
		return http.StatusBadRequest, "missing_session"
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, reservations.ErrNotFound),
		errors.Is(err, catalog.ErrItemNotFound), errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, orders.ErrTerminalState):
		return http.StatusConflict, "terminal_state"
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, reservations.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, orders.ErrConcurrentUpdate), errors.Is(err, reservations.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, orders.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, reservations.ErrSlotFull):
		return http.StatusConflict, "slot_full"
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusUnprocessableEntity, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}
