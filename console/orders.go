package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-console/models"
	"food-console/remote"
)

var orderFields = []string{
	"id", "status", "total", "subtotal", "delivery_fee", "discount", "payment_method",
	"payment_status", "address_snapshot", "branch_id", "created_at", "user_id",
}

const (
	defaultOrdersLimit  = 50
	recentOrdersLimit   = 12
	ordersByStatusLimit = 100
	ordersByUsersLimit  = 500
	ordersRangeLimit    = 2000
)

type OrderFilter struct {
	Branch        string
	Status        string
	PaymentStatus string
	// Search matches the order id or any part of the address snapshot.
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	MinTotal float64
	Limit    int
	Offset   int
}

// ListOrders pages through orders newest first with an exact total count.
func (c *Client) ListOrders(ctx context.Context, f OrderFilter) (Page[models.Order], error) {
	q := remote.From("orders").Select(orderFields...).
		Where(c.branchFilter(f.Branch)...).
		OrderBy("created_at", false).
		Range(f.Offset, limitOr(f.Limit, defaultOrdersLimit))
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.PaymentStatus != "" {
		q.Eq("payment_status", f.PaymentStatus)
	}
	if f.DateFrom != nil {
		q.Where(remote.Gte("created_at", *f.DateFrom))
	}
	if f.DateTo != nil {
		q.Where(remote.Lte("created_at", *f.DateTo))
	}
	if f.MinTotal > 0 {
		q.Where(remote.Gte("total", f.MinTotal))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Where(remote.ILikeAny(s, "id", "address_snapshot"))
	}
	p, err := page[models.Order](ctx, c, q)
	if err != nil {
		return Page[models.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return p, nil
}

func (c *Client) RecentOrders(ctx context.Context, p ListParams) ([]models.Order, error) {
	q := remote.From("orders").Select("id", "status", "total", "branch_id", "created_at").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(limitOr(p.Limit, recentOrdersLimit))
	orders, err := list[models.Order](ctx, c, q)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return orders, nil
}

// OrderDetails returns the order with its items and status timeline, both
// oldest first. A missing order is (nil, nil).
func (c *Client) OrderDetails(ctx context.Context, id, branch string) (*models.OrderDetails, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	row, err := c.one(ctx, remote.From("orders").Select(orderFields...).
		Eq("id", id).
		Where(c.branchFilter(branch)...))
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	order, err := decode[models.Order](row)
	if err != nil {
		return nil, err
	}
	d := &models.OrderDetails{Order: order}

	d.Items, err = list[models.OrderItem](ctx, c, remote.From("order_items").
		Eq("order_id", id).OrderBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("order items %s: %w", id, err)
	}
	d.Timeline, err = list[models.StatusEvent](ctx, c, remote.From("order_status_events").
		Eq("order_id", id).OrderBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("order timeline %s: %w", id, err)
	}
	chat, err := c.one(ctx, remote.From("chats").Select("id").Eq("order_id", id))
	if err != nil {
		return nil, fmt.Errorf("order chat %s: %w", id, err)
	}
	if chat != nil {
		d.ChatID = fmt.Sprint(chat["id"])
	}
	return d, nil
}

// UpdateOrderStatus sets the status; the status event is appended by the
// database trigger.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (int64, error) {
	if status == "" {
		return 0, ErrInvalidInput
	}
	return c.updateByID(ctx, "orders", id, remote.Row{"status": status})
}

func (c *Client) OrdersForStatus(ctx context.Context, status string, p ListParams) ([]models.Order, error) {
	if status == "" {
		return nil, ErrInvalidInput
	}
	q := remote.From("orders").Select(orderFields...).
		Eq("status", status).
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(limitOr(p.Limit, ordersByStatusLimit))
	orders, err := list[models.Order](ctx, c, q)
	if err != nil {
		return nil, fmt.Errorf("orders for status %s: %w", status, err)
	}
	return orders, nil
}

// OrdersByUsers batches the order lookup for a set of customers. An empty
// set returns nothing without a request.
func (c *Client) OrdersByUsers(ctx context.Context, userIDs []string, p ListParams) ([]models.Order, error) {
	if len(userIDs) == 0 {
		return []models.Order{}, nil
	}
	q := remote.From("orders").
		Select("id", "user_id", "total", "status", "payment_method", "branch_id", "created_at").
		Where(remote.In("user_id", userIDs)).
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(ordersByUsersLimit)
	orders, err := list[models.Order](ctx, c, q)
	if err != nil {
		return nil, fmt.Errorf("orders by users: %w", err)
	}
	return orders, nil
}

type RangeFilter struct {
	Branch        string
	DateFrom      *time.Time
	DateTo        *time.Time
	Type          string
	PaymentMethod string
}

// OrdersRange returns orders oldest first for reporting.
func (c *Client) OrdersRange(ctx context.Context, f RangeFilter) (Page[models.Order], error) {
	q := remote.From("orders").
		Select("id", "user_id", "total", "delivery_fee", "discount", "status", "payment_method", "type", "branch_id", "created_at").
		Where(c.branchFilter(f.Branch)...).
		OrderBy("created_at", true).
		WithLimit(ordersRangeLimit)
	if f.DateFrom != nil {
		q.Where(remote.Gte("created_at", *f.DateFrom))
	}
	if f.DateTo != nil {
		q.Where(remote.Lte("created_at", *f.DateTo))
	}
	if f.Type != "" {
		q.Eq("type", f.Type)
	}
	if f.PaymentMethod != "" {
		q.Eq("payment_method", f.PaymentMethod)
	}
	p, err := page[models.Order](ctx, c, q)
	if err != nil {
		return Page[models.Order]{}, fmt.Errorf("orders range: %w", err)
	}
	return p, nil
}
