// Package board filters, sorts and paginates order listings for the admin dashboard.
package board

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

type SortKey string

const (
	SortNone            SortKey = ""
	SortOrderNumber     SortKey = "orderNumber"
	SortCustomerName    SortKey = "customerName"
	SortFulfillmentMode SortKey = "fulfillmentMode"
	SortOrderStatus     SortKey = "orderStatus"
	SortPaymentStatus   SortKey = "paymentStatus"
	SortTotal           SortKey = "total"
	SortSubmittedAt     SortKey = "submittedAt"
)

var allowedPageSizes = map[int]bool{5: true, 10: true, 15: true}

const DefaultPageSize = 10

type Query struct {
	Statuses        []orders.Status
	PaymentStatuses []orders.PaymentStatus
	Modes           []pricing.FulfillmentMode
	Search          string
	SortBy          SortKey
	Desc            bool
	Page            int
	PageSize        int
}

type Page struct {
	Items      []orders.Order `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// ParseQuery reads filters from repeated or comma separated params. An unknown
// filter value is a validation error; an unsupported page size falls back to defaultSize.
func ParseQuery(v url.Values, defaultSize int) (Query, error) {
	if !allowedPageSizes[defaultSize] {
		defaultSize = DefaultPageSize
	}
	q := Query{
		Search:   strings.TrimSpace(v.Get("q")),
		SortBy:   parseSortKey(v.Get("sort")),
		Page:     1,
		PageSize: defaultSize,
	}
	for _, s := range multi(v, "status") {
		st, ok := orders.ParseStatus(s)
		if !ok {
			return Query{}, unknownValue("status", s)
		}
		q.Statuses = append(q.Statuses, st)
	}
	for _, s := range multi(v, "paymentStatus") {
		ps, ok := orders.ParsePaymentStatus(s)
		if !ok {
			return Query{}, unknownValue("paymentStatus", s)
		}
		q.PaymentStatuses = append(q.PaymentStatuses, ps)
	}
	for _, s := range multi(v, "mode") {
		m := pricing.FulfillmentMode(strings.ToLower(s))
		if !m.Valid() {
			return Query{}, unknownValue("mode", s)
		}
		q.Modes = append(q.Modes, m)
	}
	switch strings.ToLower(v.Get("order")) {
	case "desc":
		q.Desc = true
	case "asc":
		q.Desc = false
	default:
		q.Desc = q.SortBy == SortSubmittedAt
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil {
		q.Page = p
	}
	if n, err := strconv.Atoi(v.Get("pageSize")); err == nil && allowedPageSizes[n] {
		q.PageSize = n
	}
	return q, nil
}

func unknownValue(param, value string) error {
	return &orders.ValidationError{Field: param, Reason: fmt.Sprintf("unknown value %q", value)}
}

func parseSortKey(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortOrderNumber, SortCustomerName, SortFulfillmentMode, SortOrderStatus,
		SortPaymentStatus, SortTotal, SortSubmittedAt:
		return k
	}
	return SortNone
}

func multi(v url.Values, key string) []string {
	var out []string
	for _, raw := range v[key] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Filter keeps input order.
func Filter(in []orders.Order, q Query) []orders.Order {
	search := strings.ToLower(q.Search)
	out := make([]orders.Order, 0, len(in))
	for _, o := range in {
		if len(q.Statuses) > 0 && !contains(q.Statuses, o.OrderStatus) {
			continue
		}
		if len(q.PaymentStatuses) > 0 && !contains(q.PaymentStatuses, o.PaymentStatus) {
			continue
		}
		if len(q.Modes) > 0 && !contains(q.Modes, o.FulfillmentMode) {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matches(o orders.Order, needle string) bool {
	return strings.Contains(strings.ToLower(o.OrderNumber), needle) ||
		strings.Contains(strings.ToLower(o.Customer.FullName()), needle) ||
		strings.Contains(strings.ToLower(o.Customer.Email), needle)
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Sort orders in place by one key; ties keep their input order.
func Sort(list []orders.Order, key SortKey, desc bool) {
	less := lessFor(key)
	if less == nil {
		return
	}
	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}

func lessFor(key SortKey) func(a, b orders.Order) bool {
	switch key {
	case SortOrderNumber:
		return func(a, b orders.Order) bool { return a.OrderNumber < b.OrderNumber }
	case SortCustomerName:
		return func(a, b orders.Order) bool {
			return strings.ToLower(a.Customer.FullName()) < strings.ToLower(b.Customer.FullName())
		}
	case SortFulfillmentMode:
		return func(a, b orders.Order) bool { return a.FulfillmentMode < b.FulfillmentMode }
	case SortOrderStatus:
		return func(a, b orders.Order) bool { return statusRank[a.OrderStatus] < statusRank[b.OrderStatus] }
	case SortPaymentStatus:
		return func(a, b orders.Order) bool { return a.PaymentStatus < b.PaymentStatus }
	case SortTotal:
		return func(a, b orders.Order) bool { return a.Pricing.Total.LessThan(b.Pricing.Total) }
	case SortSubmittedAt:
		return func(a, b orders.Order) bool { return a.SubmittedAt.Before(b.SubmittedAt) }
	}
	return nil
}

// lifecycle order rather than alphabetical
var statusRank = map[orders.Status]int{
	orders.StatusPending:   0,
	orders.StatusConfirmed: 1,
	orders.StatusPreparing: 2,
	orders.StatusReady:     3,
	orders.StatusDelivered: 4,
	orders.StatusCancelled: 5,
}

// Paginate clamps page into [1, TotalPages]; TotalPages is at least 1.
func Paginate(list []orders.Order, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(list)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	items := make([]orders.Order, 0, end-start)
	items = append(items, list[start:end]...)
	return Page{Items: items, Page: page, PageSize: size, TotalItems: total, TotalPages: pages}
}

// Apply runs filter, stable sort and pagination without touching the input slice.
func Apply(in []orders.Order, q Query) Page {
	list := Filter(in, q)
	Sort(list, q.SortBy, q.Desc)
	return Paginate(list, q.Page, q.PageSize)
}

// Summary counts orders per status, every status present.
func Summary(in []orders.Order) map[orders.Status]int {
	out := make(map[orders.Status]int, len(statusRank))
	for s := range statusRank {
		out[s] = 0
	}
	for _, o := range in {
		out[o.OrderStatus]++
	}
	return out
}
