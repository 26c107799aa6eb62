package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

const idemScope = "orders.create"

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type Deps struct {
	Repo        Repository
	Created     Publisher
	Changed     Publisher
	Cache       StatusCache
	Idempotency IdempotencyStore
	Calculator  pricing.Calculator
	ServiceName string
	Log         *slog.Logger
	Now         func() time.Time
}

type Service struct {
	repo     Repository
	created  Publisher
	changed  Publisher
	cache    StatusCache
	idem     IdempotencyStore
	calc     pricing.Calculator
	validate *validator.Validate
	producer string
	log      *slog.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.New("orders")
	}
	return &Service{
		repo:     d.Repo,
		created:  d.Created,
		changed:  d.Changed,
		cache:    d.Cache,
		idem:     d.Idempotency,
		calc:     d.Calculator,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		producer: d.ServiceName,
		log:      d.Log,
		now:      d.Now,
	}
}

type CreateInput struct {
	Customer        *Customer               `json:"customer"`
	Items           []cart.Line             `json:"items"`
	FulfillmentMode pricing.FulfillmentMode `json:"fulfillmentMode"`
	PaymentMethod   PaymentMethod           `json:"paymentMethod"`
	Location        string                  `json:"location"`
	Tip             pricing.Tip             `json:"tipPercent"`
	IdempotencyKey  string                  `json:"-"`
	TraceID         string                  `json:"-"`
}

func (s *Service) validateCreate(in CreateInput) error {
	if in.Customer == nil {
		return &ValidationError{Field: "customer", Reason: "is required"}
	}
	if err := s.validate.Struct(in.Customer); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return &ValidationError{Field: "customer." + lowerFirst(f.StructNamespace()), Reason: "failed " + f.Tag()}
		}
		return &ValidationError{Field: "customer", Reason: err.Error()}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for i, l := range in.Items {
		if l.ItemID == "" || l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("items[%d]", i), Reason: "invalid line"}
		}
	}
	if !in.FulfillmentMode.Valid() {
		return &ValidationError{Field: "fulfillmentMode", Reason: "must be delivery or pickup"}
	}
	if in.FulfillmentMode == pricing.ModeDelivery && in.Customer.Address == nil {
		return &ValidationError{Field: "customer.address", Reason: "is required for delivery"}
	}
	if !in.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Reason: "must be Card or Cash"}
	}
	if strings.TrimSpace(in.Location) == "" {
		return &ValidationError{Field: "location", Reason: "is required"}
	}
	if !in.Tip.Valid() {
		return &ValidationError{Field: "tipPercent", Reason: "must be 0, 15, 18 or 22"}
	}
	return nil
}

// Create places an order. existed is true when the idempotency key matched an earlier order.
func (s *Service) Create(ctx context.Context, in CreateInput) (o Order, existed bool, err error) {
	if err := s.validateCreate(in); err != nil {
		return Order{}, false, err
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		if id, ok, _ := s.idem.Recall(ctx, idemScope, in.IdempotencyKey); ok {
			prev, err := s.repo.Get(ctx, id)
			if err == nil {
				return prev, true, nil
			}
			logging.FromCtx(ctx).Warn("idempotency key points at missing order", "order_id", id, "error", err)
		}
		locked, lockErr := s.idem.TryLock(ctx, idemScope, in.IdempotencyKey)
		if lockErr != nil {
			return Order{}, false, fmt.Errorf("idempotency lock: %w", lockErr)
		}
		if !locked {
			return Order{}, false, ErrDuplicateRequest
		}
		defer func() {
			if err != nil {
				_ = s.idem.Unlock(context.WithoutCancel(ctx), idemScope, in.IdempotencyKey)
			}
		}()
	}

	breakdown := s.calc.Calculate(cartLines(in.Items), in.FulfillmentMode, in.Tip)
	if !breakdown.Total.IsPositive() {
		return Order{}, false, &ValidationError{Field: "pricing.total", Reason: "must be positive"}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	est := EstimateFor(in.FulfillmentMode, now)
	o = Order{
		ID:              uuid.NewString(),
		Customer:        *in.Customer,
		Items:           in.Items,
		Pricing:         breakdown,
		TipPercent:      in.Tip,
		FulfillmentMode: in.FulfillmentMode,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   in.PaymentMethod.InitialPaymentStatus(),
		OrderStatus:     StatusPending,
		Location:        strings.TrimSpace(in.Location),
		SubmittedAt:     now,
		EstimatedAt:     &est,
		UpdatedAt:       now,
	}

	for attempt := 0; ; attempt++ {
		o.OrderNumber = OrderNumber(o.SubmittedAt.Add(time.Duration(attempt) * time.Millisecond))
		err = s.repo.Create(ctx, &o)
		if !errors.Is(err, ErrOrderNumberTaken) || attempt >= 4 {
			break
		}
	}
	if err != nil {
		return Order{}, false, err
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, idemScope, in.IdempotencyKey, o.ID); err != nil {
			logging.FromCtx(ctx).Warn("idempotency remember failed", "order_id", o.ID, "error", err)
		}
	}
	s.cacheStatus(ctx, o)
	s.publishCreated(o, in.TraceID)
	metrics.OrdersCreated.WithLabelValues(string(o.FulfillmentMode), string(o.PaymentMethod)).Inc()

	logging.FromCtx(ctx).Info("order created",
		"order_id", o.ID, "order_number", o.OrderNumber, "total", o.Pricing.Total.StringFixed(2))
	return o, false, nil
}

type TransitionRequest struct {
	OrderStatus   *Status        `json:"orderStatus,omitempty"`
	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`
	TraceID       string         `json:"-"`
}

// Transition moves an order along the status table. Terminal orders reject every change.
func (s *Service) Transition(ctx context.Context, id string, req TransitionRequest) (Order, error) {
	if req.OrderStatus == nil && req.PaymentStatus == nil {
		return Order{}, &ValidationError{Field: "orderStatus", Reason: "orderStatus or paymentStatus is required"}
	}
	if req.OrderStatus != nil && !req.OrderStatus.Valid() {
		return Order{}, &ValidationError{Field: "orderStatus", Reason: fmt.Sprintf("unknown status %q", *req.OrderStatus)}
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return Order{}, &ValidationError{Field: "paymentStatus", Reason: fmt.Sprintf("unknown status %q", *req.PaymentStatus)}
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}

	from := StatusPair{Order: o.OrderStatus, Payment: o.PaymentStatus}
	target := from.Order
	if req.OrderStatus != nil {
		target = *req.OrderStatus
	}
	if o.OrderStatus.IsTerminal() {
		metrics.OrderTransitions.WithLabelValues(string(from.Order), string(target), "terminal").Inc()
		return Order{}, &TerminalStateError{Status: o.OrderStatus}
	}
	statusChange := req.OrderStatus != nil && !(target == from.Order && req.PaymentStatus != nil)
	if statusChange && !CanTransition(from.Order, target) {
		metrics.OrderTransitions.WithLabelValues(string(from.Order), string(target), "invalid").Inc()
		return Order{}, &InvalidTransitionError{From: from.Order, To: target}
	}

	to := StatusPair{Order: target, Payment: from.Payment}
	switch {
	case req.PaymentStatus != nil:
		to.Payment = *req.PaymentStatus
	case target == StatusDelivered && o.PaymentMethod == PaymentCash && from.Payment == PaymentPending:
		to.Payment = PaymentCompleted
	}

	if to == from {
		return o, nil
	}

	now := s.now().UTC()
	ok, err := s.repo.UpdateStatusIf(ctx, id, from, to, now)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		metrics.OrderTransitions.WithLabelValues(string(from.Order), string(target), "conflict").Inc()
		return Order{}, ErrConcurrentUpdate
	}
	metrics.OrderTransitions.WithLabelValues(string(from.Order), string(target), "ok").Inc()

	o.OrderStatus, o.PaymentStatus, o.UpdatedAt = to.Order, to.Payment, now
	s.cacheStatus(ctx, o)
	s.publishChanged(o, from.Order, req.TraceID)

	logging.FromCtx(ctx).Info("order transitioned",
		"order_id", o.ID, "from", from.Order, "to", to.Order, "payment_status", to.Payment)
	return o, nil
}

// Get treats ids that are not UUIDs as unknown orders.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if !validID(id) {
		return Order{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Status serves from the Redis cache and falls back to the database.
func (s *Service) Status(ctx context.Context, id string) (StatusView, error) {
	if !validID(id) {
		return StatusView{}, ErrNotFound
	}
	if s.cache != nil {
		v, err := s.cache.Get(ctx, id)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logging.FromCtx(ctx).Warn("status cache read failed", "order_id", id, "error", err)
		}
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	s.cacheStatus(ctx, o)
	return o.StatusView(), nil
}

// List returns all orders newest first, or only the orders of one customer when email is set.
func (s *Service) List(ctx context.Context, email string) ([]Order, error) {
	if strings.TrimSpace(email) == "" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByEmail(ctx, email)
}

func (s *Service) cacheStatus(ctx context.Context, o Order) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, o.StatusView()); err != nil {
		logging.FromCtx(ctx).Warn("status cache write failed", "order_id", o.ID, "error", err)
	}
}

func (s *Service) publishCreated(o Order, trace string) {
	if s.created == nil {
		return
	}
	payload := OrderCreatedPayload{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Email:           o.Customer.Email,
		FirstName:       o.Customer.FirstName,
		FulfillmentMode: string(o.FulfillmentMode),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		Location:        o.Location,
		Total:           o.Pricing.Total.StringFixed(2),
		EstimatedAt:     o.EstimatedAt,
	}
	s.publish(s.created, EventOrderCreated, o.ID, trace, payload)
}

func (s *Service) publishChanged(o Order, from Status, trace string) {
	if s.changed == nil {
		return
	}
	payload := OrderStatusChangedPayload{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Email:           o.Customer.Email,
		FirstName:       o.Customer.FirstName,
		FulfillmentMode: string(o.FulfillmentMode),
		From:            from,
		To:              o.OrderStatus,
		PaymentStatus:   string(o.PaymentStatus),
		ChangedAt:       o.UpdatedAt,
	}
	s.publish(s.changed, EventOrderStatusChanged, o.ID, trace, payload)
}

func (s *Service) publish(p Publisher, eventType, orderID, trace string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.producer,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func cartLines(items []cart.Line) []pricing.Line {
	return cart.Cart{Lines: items}.PricingLines()
}

func lowerFirst(ns string) string {
	// "Customer.Address.Street" -> "address.street"
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
