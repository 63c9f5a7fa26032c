package console

import (
	"context"
	"fmt"

	"food-console/models"
	"food-console/remote"
)

const menuLimit = 200

// Menu returns categories in sort order and the newest menu items.
func (c *Client) Menu(ctx context.Context, p ListParams) (models.Menu, error) {
	var m models.Menu
	var err error
	m.Categories, err = list[models.Category](ctx, c, remote.From("categories").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("sort_order", true))
	if err != nil {
		return models.Menu{}, fmt.Errorf("menu categories: %w", err)
	}
	m.Items, err = list[models.MenuItem](ctx, c, remote.From("menu_items").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(limitOr(p.Limit, menuLimit)))
	if err != nil {
		return models.Menu{}, fmt.Errorf("menu items: %w", err)
	}
	return m, nil
}

func (c *Client) InsertMenuItem(ctx context.Context, row remote.Row) (remote.Row, error) {
	if len(row) == 0 {
		return nil, ErrInvalidInput
	}
	return c.insert(ctx, "menu_items", c.withBranch(row))
}

func (c *Client) UpdateMenuItem(ctx context.Context, id string, row remote.Row) (int64, error) {
	return c.updateByID(ctx, "menu_items", id, row)
}

func (c *Client) InsertCategory(ctx context.Context, name string, sortOrder int) (*models.Category, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	row, err := c.insert(ctx, "categories", c.withBranch(remote.Row{
		"name":       name,
		"sort_order": sortOrder,
		"is_active":  true,
	}))
	if err != nil {
		return nil, err
	}
	cat, err := decode[models.Category](row)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id string, row remote.Row) (int64, error) {
	return c.updateByID(ctx, "categories", id, row)
}

func (c *Client) Addons(ctx context.Context, p ListParams) ([]models.Addon, error) {
	addons, err := list[models.Addon](ctx, c, remote.From("item_addons").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(limitOr(p.Limit, menuLimit)))
	if err != nil {
		return nil, fmt.Errorf("addons: %w", err)
	}
	return addons, nil
}

func (c *Client) InsertAddon(ctx context.Context, itemID, name string, price float64) (*models.Addon, error) {
	if itemID == "" || name == "" {
		return nil, ErrInvalidInput
	}
	row, err := c.insert(ctx, "item_addons", c.withBranch(remote.Row{
		"item_id": itemID,
		"name":    name,
		"price":   price,
	}))
	if err != nil {
		return nil, err
	}
	a, err := decode[models.Addon](row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAddon(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	if err := c.svc.Delete(ctx, "item_addons", remote.Eq("id", id)); err != nil {
		return fmt.Errorf("delete addon %s: %w", id, err)
	}
	return nil
}
