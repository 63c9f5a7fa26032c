package console

import (
	"context"
	"fmt"

	"food-console/models"
	"food-console/remote"
)

// NotificationsLimit is the page size of the staff notification feed.
const NotificationsLimit = 30

func (c *Client) Notifications(ctx context.Context, limit int) ([]models.Notification, error) {
	items, err := list[models.Notification](ctx, c, remote.From("staff_notifications").
		OrderBy("created_at", false).
		OrderBy("id", false).
		WithLimit(limitOr(limit, NotificationsLimit)))
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	return items, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.updateByID(ctx, "staff_notifications", id, remote.Row{"is_read": true})
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	n, err := c.svc.Update(ctx, "staff_notifications", remote.Row{"is_read": true}, remote.Eq("is_read", false))
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}
