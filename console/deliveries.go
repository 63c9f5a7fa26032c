package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"food-console/delivery"
	"food-console/models"
	"food-console/remote"
)

const deliveriesLimit = 100

type DeliveryFilter struct {
	Branch  string
	Status  string
	RiderID string
	Limit   int
	Offset  int
}

// Deliveries lists deliveries most recently updated first, each joined to
// its rider. Riders are fetched in one batched lookup.
func (c *Client) Deliveries(ctx context.Context, f DeliveryFilter) ([]models.Delivery, error) {
	q := remote.From("deliveries").
		Where(c.branchFilter(f.Branch)...).
		OrderBy("updated_at", false).
		Range(f.Offset, limitOr(f.Limit, deliveriesLimit))
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.RiderID != "" {
		q.Eq("rider_id", f.RiderID)
	}
	ds, err := list[models.Delivery](ctx, c, q)
	if err != nil {
		return nil, fmt.Errorf("deliveries: %w", err)
	}
	if err := c.attachRiders(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (c *Client) attachRiders(ctx context.Context, ds []models.Delivery) error {
	seen := make(map[string]bool)
	var ids []string
	for _, d := range ds {
		if d.RiderID != "" && !seen[d.RiderID] {
			seen[d.RiderID] = true
			ids = append(ids, d.RiderID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	riders, err := list[models.RiderSummary](ctx, c, remote.From("profiles").
		Select("id", "name", "phone", "vehicle_type").
		Where(remote.In("id", ids)))
	if err != nil {
		return fmt.Errorf("delivery riders: %w", err)
	}
	byID := make(map[string]*models.RiderSummary, len(riders))
	for i := range riders {
		byID[riders[i].ID] = &riders[i]
	}
	for i := range ds {
		ds[i].Rider = byID[ds[i].RiderID]
	}
	return nil
}

func (c *Client) getDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	row, err := c.one(ctx, remote.From("deliveries").Eq("id", id))
	if err != nil || row == nil {
		return nil, err
	}
	d, err := decode[models.Delivery](row)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AdvanceDelivery moves a delivery to target, stamping picked_at and
// delivered_at on first arrival in those states.
func (c *Client) AdvanceDelivery(ctx context.Context, id string, target delivery.Status) (*models.Delivery, error) {
	if id == "" || !target.Valid() {
		return nil, ErrInvalidInput
	}
	d, err := c.getDelivery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get delivery %s: %w", id, err)
	}
	if d == nil {
		return nil, fmt.Errorf("get delivery %s: %w", id, remote.ErrNotFound)
	}
	current := delivery.StateOf(*d)
	if c.strictDelivery && !delivery.ValidTransition(current.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}
	patch := delivery.Advance(current, target, c.now())
	if _, err := c.svc.Update(ctx, "deliveries", patch.Row(), remote.Eq("id", id)); err != nil {
		return nil, fmt.Errorf("advance delivery %s: %w", id, err)
	}
	next := delivery.Apply(current, patch)
	d.Status = string(next.Status)
	d.PickedAt = next.PickedAt
	d.DeliveredAt = next.DeliveredAt
	d.UpdatedAt = next.UpdatedAt
	c.log.Info("delivery advanced",
		zap.String("delivery_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(target)))
	return d, nil
}

// AssignDelivery creates or replaces the delivery of an order. The record is
// keyed on order_id, so an order never has more than one delivery.
func (c *Client) AssignDelivery(ctx context.Context, orderID, riderID string) (*models.Delivery, error) {
	if orderID == "" || riderID == "" {
		return nil, ErrInvalidInput
	}
	now := c.now()
	row := remote.Row{
		"order_id":     orderID,
		"rider_id":     riderID,
		"status":       string(delivery.Assigned),
		"assigned_at":  now,
		"picked_at":    nil,
		"delivered_at": nil,
		"updated_at":   now,
	}
	order, err := c.one(ctx, remote.From("orders").Select("branch_id").Eq("id", orderID))
	if err != nil {
		return nil, fmt.Errorf("assign delivery %s: %w", orderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("assign delivery %s: %w", orderID, remote.ErrNotFound)
	}
	if order["branch_id"] != nil {
		row["branch_id"] = order["branch_id"]
	}
	out, err := c.svc.Upsert(ctx, "deliveries", row, "order_id")
	if err != nil {
		return nil, fmt.Errorf("assign delivery %s: %w", orderID, err)
	}
	d, err := decode[models.Delivery](out)
	if err != nil {
		return nil, err
	}
	ds := []models.Delivery{d}
	if err := c.attachRiders(ctx, ds); err != nil {
		return nil, err
	}
	return &ds[0], nil
}
