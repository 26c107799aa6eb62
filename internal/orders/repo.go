package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

var ErrOrderNumberTaken = errors.New("order number already taken")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	// UpdateStatusIf applies the change only if the order still has the given
	// statuses; false means nothing matched.
	UpdateStatusIf(ctx context.Context, id string, from StatusPair, to StatusPair, updatedAt time.Time) (bool, error)
}

type StatusPair struct {
	Order   Status
	Payment PaymentStatus
}

type Repo struct{ DB *pgxpool.Pool }

// pricingRecord is the JSONB form of a breakdown; unlike the API form it keeps full precision.
type pricingRecord struct {
	SubTotal decimal.Decimal `json:"subTotal"`
	Tax      decimal.Decimal `json:"tax"`
	Delivery decimal.Decimal `json:"delivery"`
	Tip      decimal.Decimal `json:"tip"`
	Total    decimal.Decimal `json:"total"`
}

const orderColumns = `id, order_number, customer, items, pricing, tip_percent, fulfillment_mode,
	payment_method, payment_status, order_status, location, submitted_at, estimated_at, updated_at`

func (r *Repo) Create(ctx context.Context, o *Order) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_email, customer, items, pricing, tip_percent,
			fulfillment_mode, payment_method, payment_status, order_status, location,
			submitted_at, estimated_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.OrderNumber, strings.ToLower(o.Customer.Email), o.Customer, o.Items, pricingRecord(o.Pricing), int(o.TipPercent),
		string(o.FulfillmentMode), string(o.PaymentMethod), string(o.PaymentStatus), string(o.OrderStatus),
		o.Location, o.SubmittedAt, o.EstimatedAt, o.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key" {
		return ErrOrderNumberTaken
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *Repo) List(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY submitted_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repo) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_email=$1 ORDER BY submitted_at DESC, id`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("list orders by email: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repo) UpdateStatusIf(ctx context.Context, id string, from, to StatusPair, updatedAt time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET order_status=$2, payment_status=$3, updated_at=$4
		WHERE id=$1 AND order_status=$5 AND payment_status=$6`,
		id, string(to.Order), string(to.Payment), updatedAt, string(from.Order), string(from.Payment),
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	// rows == 0: either not found or status moved underneath us
	return ct.RowsAffected() > 0, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                                    Order
		price                                pricingRecord
		tip                                  int
		mode, method, payStatus, orderStatus string
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Customer, &o.Items, &price, &tip, &mode,
		&method, &payStatus, &orderStatus, &o.Location, &o.SubmittedAt, &o.EstimatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Pricing = pricing.Breakdown(price)
	o.TipPercent = pricing.Tip(tip)
	o.FulfillmentMode = pricing.FulfillmentMode(mode)
	o.PaymentMethod = PaymentMethod(method)
	o.PaymentStatus = PaymentStatus(payStatus)
	o.OrderStatus = Status(orderStatus)
	return o, nil
}

var _ Repository = (*Repo)(nil)
