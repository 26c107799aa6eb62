package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-restaurant-orders/internal/reservations"
)

type ReservationsHandler struct {
	Reservations ReservationService
}

func (h *ReservationsHandler) Register(r chi.Router) {
	r.Post("/reservations", h.create)
	r.Get("/reservations", h.listByEmail)
	r.Get("/reservations/{id}", h.get)
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in reservations.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.Reservations.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReservationsHandler) listByEmail(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.ListByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReservationsHandler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reservations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type NotificationsHandler struct {
	Notifications NotificationService
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/notifications", h.list)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, r, errBadRequest("email query parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Notifications.List(r.Context(), email, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
