package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/board"
	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/reservations"
)

type AdminHandler struct {
	Orders       OrderService
	Catalog      CatalogService
	Reservations ReservationService
	PageSize     int
}

func (h *AdminHandler) Register(r chi.Router, authz *auth.Authz) {
	r.With(authz.Require(auth.PermOrdersRead)).Get("/orders", h.board)
	r.With(authz.Require(auth.PermOrdersRead)).Get("/orders/summary", h.summary)
	r.With(authz.Require(auth.PermOrdersWrite)).Patch("/orders/{id}", h.transition)

	r.With(authz.Require(auth.PermMenuWrite)).Put("/menu/items/{id}", h.upsertItem)
	r.With(authz.Require(auth.PermMenuWrite)).Delete("/menu/items/{id}", h.deleteItem)
	r.With(authz.Require(auth.PermMenuWrite)).Patch("/menu/items/{id}/availability", h.setAvailability)
	r.With(authz.Require(auth.PermMenuWrite)).Put("/menu/categories/{id}", h.upsertCategory)

	r.With(authz.Require(auth.PermOrdersRead)).Get("/reservations", h.reservationsForDay)
	r.With(authz.Require(auth.PermOrdersWrite)).Patch("/reservations/{id}", h.transitionReservation)
}

func (h *AdminHandler) board(w http.ResponseWriter, r *http.Request) {
	q, err := board.ParseQuery(r.URL.Query(), h.PageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	all, err := h.Orders.List(r.Context(), "")
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board.Apply(all, q))
}

func (h *AdminHandler) summary(w http.ResponseWriter, r *http.Request) {
	all, err := h.Orders.List(r.Context(), "")
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board.Summary(all))
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req orders.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.TraceID = middleware.GetReqID(r.Context())
	o, err := h.Orders.Transition(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromCtx(r.Context()).Info("admin order update", "actor", auth.Subject(r.Context()), "order_id", o.ID, "status", o.OrderStatus)
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) upsertItem(w http.ResponseWriter, r *http.Request) {
	var item catalog.MenuItem
	if err := decodeJSON(w, r, &item); err != nil {
		respondError(w, r, err)
		return
	}
	item.ID = chi.URLParam(r, "id")
	saved, err := h.Catalog.UpsertItem(r.Context(), item)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *AdminHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type availabilityReq struct {
	Available *bool `json:"available"`
}

func (h *AdminHandler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Available == nil {
		respondError(w, r, errBadRequest("available is required"))
		return
	}
	item, err := h.Catalog.SetAvailability(r.Context(), chi.URLParam(r, "id"), *req.Available)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *AdminHandler) upsertCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := h.Catalog.UpsertCategory(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) reservationsForDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := time.Now().UTC()
	if raw := strings.TrimSpace(q.Get("day")); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondError(w, r, errBadRequest("day must be YYYY-MM-DD"))
			return
		}
		day = d
	}
	list, err := h.Reservations.ListForDay(r.Context(), q.Get("location"), day)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type reservationStatusReq struct {
	Status reservations.Status `json:"status"`
}

func (h *AdminHandler) transitionReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.Reservations.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
