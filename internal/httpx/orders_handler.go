package httpx

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-restaurant-orders/internal/board"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

const IdempotencyHeader = "Idempotency-Key"

type OrdersHandler struct {
	Orders OrderService
	Cart   CartService
}

// CreateOrderReq carries explicit items, or none to check out the session cart.
type CreateOrderReq struct {
	Customer        *orders.Customer        `json:"customer"`
	Items           []cart.Selection        `json:"items,omitempty"`
	FulfillmentMode pricing.FulfillmentMode `json:"fulfillmentMode"`
	PaymentMethod   orders.PaymentMethod    `json:"paymentMethod"`
	Location        string                  `json:"location"`
	TipPercent      pricing.Tip             `json:"tipPercent"`
}

type CreateOrderResp struct {
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	ctx := r.Context()

	sess := session(r)
	fromSession := len(req.Items) == 0
	var c cart.Cart
	var err error
	if fromSession {
		c, err = h.Cart.Get(ctx, sess)
	} else {
		c, err = h.Cart.Build(ctx, req.Items)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, existed, err := h.Orders.Create(ctx, orders.CreateInput{
		Customer:        req.Customer,
		Items:           c.Lines,
		FulfillmentMode: req.FulfillmentMode,
		PaymentMethod:   req.PaymentMethod,
		Location:        req.Location,
		Tip:             req.TipPercent,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
		TraceID:         middleware.GetReqID(ctx),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if fromSession && !existed {
		if err := h.Cart.Clear(ctx, sess); err != nil {
			logging.FromCtx(ctx).Warn("clear cart after checkout failed", "order_id", o.ID, "error", err)
		}
	}

	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, CreateOrderResp{Order: o, Idempotent: existed})
}

// listOrders serves a customer's own history; email is required.
func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, r, errBadRequest("email query parameter is required"))
		return
	}
	q, err := board.ParseQuery(r.URL.Query(), board.DefaultPageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := h.Orders.List(r.Context(), email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	board.Sort(list, q.SortBy, q.Desc)
	writeJSON(w, http.StatusOK, board.Paginate(list, q.Page, q.PageSize))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.Orders.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
