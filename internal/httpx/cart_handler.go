package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

// SessionHeader identifies the anonymous cart owner.
const SessionHeader = "X-Session-Id"

type CartHandler struct {
	Cart CartService
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Delete("/cart", h.clear)
	r.Post("/cart/lines", h.addLine)
	r.Patch("/cart/lines/{index}", h.setQuantity)
	r.Delete("/cart/lines/{index}", h.removeLine)
	r.Post("/cart/quote", h.quote)
}

func session(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func lineIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, errBadRequest("line index must be an integer")
	}
	return i, nil
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Cart.Get(r.Context(), session(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), session(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) addLine(w http.ResponseWriter, r *http.Request) {
	var sel cart.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.Cart.Add(r.Context(), session(r), sel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	idx, err := lineIndex(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req quantityReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.Cart.SetQuantity(r.Context(), session(r), idx, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	idx, err := lineIndex(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.Cart.Remove(r.Context(), session(r), idx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type quoteReq struct {
	FulfillmentMode pricing.FulfillmentMode `json:"fulfillmentMode"`
	TipPercent      pricing.Tip             `json:"tipPercent"`
}

func (h *CartHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if !req.FulfillmentMode.Valid() {
		respondError(w, r, errBadRequest("fulfillmentMode must be delivery or pickup"))
		return
	}
	if !req.TipPercent.Valid() {
		respondError(w, r, pricing.ErrInvalidTip)
		return
	}
	q, err := h.Cart.Quote(r.Context(), session(r), req.FulfillmentMode, req.TipPercent)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
