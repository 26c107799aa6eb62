package board

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

func order(n int, status orders.Status, first string, total string) orders.Order {
	at := time.Date(2026, 10, 18, 12, n, 0, 0, time.UTC)
	return orders.Order{
		ID:              fmt.Sprintf("o-%d", n),
		OrderNumber:     orders.OrderNumber(at),
		Customer:        orders.Customer{FirstName: first, LastName: "Doe", Email: first + "@example.com"},
		Pricing:         pricing.Breakdown{Total: decimal.RequireFromString(total)},
		FulfillmentMode: pricing.ModePickup,
		PaymentStatus:   orders.PaymentPending,
		OrderStatus:     status,
		SubmittedAt:     at,
	}
}

func ids(list []orders.Order) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

func fixture() []orders.Order {
	return []orders.Order{
		order(1, orders.StatusPending, "Cara", "20.00"),
		order(2, orders.StatusDelivered, "Abe", "15.00"),
		order(3, orders.StatusConfirmed, "Bea", "20.00"),
		order(4, orders.StatusPending, "Dan", "9.99"),
		order(5, orders.StatusCancelled, "Eve", "30.00"),
	}
}

func TestFilter_StatusSubsetKeepsInputOrder(t *testing.T) {
	q := Query{Statuses: []orders.Status{orders.StatusPending, orders.StatusConfirmed}}
	got := Filter(fixture(), q)
	assert.Equal(t, []string{"o-1", "o-3", "o-4"}, ids(got))
	for _, o := range got {
		assert.Contains(t, q.Statuses, o.OrderStatus)
	}
}

func TestFilter_Search(t *testing.T) {
	in := fixture()
	assert.Equal(t, []string{"o-2"}, ids(Filter(in, Query{Search: "abe doe"})))
	assert.Equal(t, []string{"o-5"}, ids(Filter(in, Query{Search: "EVE@EXAMPLE"})))
	assert.Equal(t, []string{"o-3"}, ids(Filter(in, Query{Search: in[2].OrderNumber})))
}

func TestSort_StableOnTies(t *testing.T) {
	list := fixture()
	Sort(list, SortTotal, false)
	assert.Equal(t, []string{"o-4", "o-2", "o-1", "o-3", "o-5"}, ids(list))

	list = fixture()
	Sort(list, SortTotal, true)
	assert.Equal(t, []string{"o-5", "o-1", "o-3", "o-2", "o-4"}, ids(list))
}

func TestSort_ByStatusAndName(t *testing.T) {
	list := fixture()
	Sort(list, SortOrderStatus, false)
	assert.Equal(t, []string{"o-1", "o-4", "o-3", "o-2", "o-5"}, ids(list))

	list = fixture()
	Sort(list, SortCustomerName, false)
	assert.Equal(t, []string{"o-2", "o-3", "o-1", "o-4", "o-5"}, ids(list))
}

func TestSort_NoneIsNoop(t *testing.T) {
	list := fixture()
	Sort(list, SortNone, true)
	assert.Equal(t, ids(fixture()), ids(list))
}

func TestPaginate_Clamps(t *testing.T) {
	list := fixture()

	p := Paginate(list, 2, 2)
	assert.Equal(t, []string{"o-3", "o-4"}, ids(p.Items))
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 5, p.TotalItems)

	p = Paginate(list, 99, 2)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, []string{"o-5"}, ids(p.Items))

	p = Paginate(list, -1, 2)
	assert.Equal(t, 1, p.Page)

	p = Paginate(nil, 3, 5)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestParseQuery(t *testing.T) {
	v := url.Values{}
	v.Add("status", "pending,confirmed")
	v.Add("paymentStatus", "completed")
	v.Add("mode", "Pickup")
	v.Set("sort", "total")
	v.Set("order", "desc")
	v.Set("page", "2")
	v.Set("pageSize", "15")
	v.Set("q", " ana ")

	q, err := ParseQuery(v, 10)
	require.NoError(t, err)
	assert.Equal(t, []orders.Status{orders.StatusPending, orders.StatusConfirmed}, q.Statuses)
	assert.Equal(t, []orders.PaymentStatus{orders.PaymentCompleted}, q.PaymentStatuses)
	assert.Equal(t, []pricing.FulfillmentMode{pricing.ModePickup}, q.Modes)
	assert.Equal(t, SortTotal, q.SortBy)
	assert.True(t, q.Desc)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 15, q.PageSize)
	assert.Equal(t, "ana", q.Search)
}

func TestParseQuery_PageSizeFallback(t *testing.T) {
	q, err := ParseQuery(url.Values{"pageSize": {"7"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, q.PageSize)

	q, err = ParseQuery(url.Values{}, 12)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, q.PageSize)

	q, err = ParseQuery(url.Values{"sort": {"submittedAt"}}, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, q.PageSize)
	assert.True(t, q.Desc)
}

func TestParseQuery_UnknownFilterValue(t *testing.T) {
	tests := []struct {
		param string
		value string
	}{
		{"status", "shipped"},
		{"status", "pending,shipped"},
		{"paymentStatus", "refunded"},
		{"mode", "drone"},
	}
	for _, tt := range tests {
		t.Run(tt.param+"="+tt.value, func(t *testing.T) {
			_, err := ParseQuery(url.Values{tt.param: {tt.value}}, 10)
			require.ErrorIs(t, err, orders.ErrValidation)
			var ve *orders.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Field)
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	p := Apply(in, Query{SortBy: SortTotal, Desc: true, Page: 1, PageSize: 5})
	require.Len(t, p.Items, 5)
	assert.Equal(t, ids(fixture()), ids(in))
}

func TestSummary(t *testing.T) {
	s := Summary(fixture())
	assert.Equal(t, 2, s[orders.StatusPending])
	assert.Equal(t, 0, s[orders.StatusReady])
	assert.Len(t, s, 6)
}
