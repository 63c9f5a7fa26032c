package console

import (
	"context"
	"fmt"

	"food-console/errclass"
	"food-console/remote"
)

// DeliverySettings returns the singleton row, or nil if none was saved yet.
func (c *Client) DeliverySettings(ctx context.Context) (remote.Row, error) {
	row, err := c.one(ctx, remote.From("delivery_settings"))
	if err != nil {
		return nil, fmt.Errorf("delivery settings: %w", err)
	}
	return row, nil
}

func (c *Client) SaveDeliverySettings(ctx context.Context, row remote.Row) (remote.Row, error) {
	out, err := c.saveSingleton(ctx, "delivery_settings", row)
	if err != nil {
		return nil, fmt.Errorf("save delivery settings: %w", err)
	}
	return out, nil
}

// RestaurantSettings reads the optional restaurant_settings table. An
// unprovisioned table is reported as Missing rather than as an error.
func (c *Client) RestaurantSettings(ctx context.Context) (SettingsResult, error) {
	row, err := c.one(ctx, remote.From("restaurant_settings"))
	if err != nil {
		if errclass.Is(err, errclass.UndefinedTable) {
			return SettingsResult{Missing: true}, nil
		}
		return SettingsResult{}, fmt.Errorf("restaurant settings: %w", err)
	}
	return SettingsResult{Settings: row}, nil
}

func (c *Client) SaveRestaurantSettings(ctx context.Context, row remote.Row) (SettingsResult, error) {
	out, err := c.saveSingleton(ctx, "restaurant_settings", row)
	if err != nil {
		if errclass.Is(err, errclass.UndefinedTable) {
			return SettingsResult{Missing: true}, nil
		}
		return SettingsResult{}, fmt.Errorf("save restaurant settings: %w", err)
	}
	return SettingsResult{Settings: out}, nil
}

// saveSingleton updates the first row of table, or inserts one if the
// table is empty.
func (c *Client) saveSingleton(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	if len(row) == 0 {
		return nil, ErrInvalidInput
	}
	existing, err := c.one(ctx, remote.From(table).Select("id"))
	if err != nil {
		return nil, err
	}
	if existing == nil || existing["id"] == nil {
		return c.svc.Insert(ctx, table, row)
	}
	payload := row.Without("id")
	if _, err := c.svc.Update(ctx, table, payload, remote.Eq("id", existing["id"])); err != nil {
		return nil, err
	}
	out := payload.Clone()
	out["id"] = existing["id"]
	return out, nil
}
