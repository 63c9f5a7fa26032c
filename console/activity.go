package console

import (
	"context"
	"fmt"
	"time"

	"food-console/models"
	"food-console/remote"
)

const (
	promosLimit  = 200
	reviewsLimit = 200
	auditLimit   = 100
)

// ListBranches returns the branches visible to the session, by name.
func (c *Client) ListBranches(ctx context.Context) ([]models.Branch, error) {
	branches, err := list[models.Branch](ctx, c, remote.From("branches").OrderBy("name", true))
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

func (c *Client) Promos(ctx context.Context, p ListParams) ([]models.Promo, error) {
	promos, err := list[models.Promo](ctx, c, remote.From("promos").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		Range(p.Offset, limitOr(p.Limit, promosLimit)))
	if err != nil {
		return nil, fmt.Errorf("promos: %w", err)
	}
	return promos, nil
}

func (c *Client) InsertPromo(ctx context.Context, row remote.Row) (remote.Row, error) {
	if len(row) == 0 {
		return nil, ErrInvalidInput
	}
	return c.insert(ctx, "promos", c.withBranch(row))
}

func (c *Client) UpdatePromo(ctx context.Context, id string, row remote.Row) (int64, error) {
	return c.updateByID(ctx, "promos", id, row)
}

func (c *Client) Reviews(ctx context.Context, p ListParams) (Page[models.Review], error) {
	reviews, err := page[models.Review](ctx, c, remote.From("reviews").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		Range(p.Offset, limitOr(p.Limit, reviewsLimit)))
	if err != nil {
		return Page[models.Review]{}, fmt.Errorf("reviews: %w", err)
	}
	return reviews, nil
}

type AuditFilter struct {
	Branch   string
	Entity   string
	ActorID  string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

func (c *Client) AuditLog(ctx context.Context, f AuditFilter) (Page[models.AuditLogEntry], error) {
	q := remote.From("audit_logs").
		Where(c.branchFilter(f.Branch)...).
		OrderBy("created_at", false).
		Range(f.Offset, limitOr(f.Limit, auditLimit))
	if f.Entity != "" {
		q.Eq("entity", f.Entity)
	}
	if f.ActorID != "" {
		q.Eq("actor_id", f.ActorID)
	}
	if f.Search != "" {
		q.Where(remote.ILikeAny(f.Search, "action", "entity_id", "details"))
	}
	if f.DateFrom != nil {
		q.Where(remote.Gte("created_at", *f.DateFrom))
	}
	if f.DateTo != nil {
		q.Where(remote.Lte("created_at", *f.DateTo))
	}
	entries, err := page[models.AuditLogEntry](ctx, c, q)
	if err != nil {
		return Page[models.AuditLogEntry]{}, fmt.Errorf("audit log: %w", err)
	}
	return entries, nil
}
