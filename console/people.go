package console

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"food-console/errclass"
	"food-console/models"
	"food-console/remote"
	"food-console/retry"
)

// Columns added to profiles after the first release. Writes and reads that
// mention them fall back when the deployed schema lacks them.
var optionalProfileColumns = []string{"default_delivery_note"}

var riderFields = []string{
	"id", "name", "phone", "vehicle_type", "is_active", "branch_id", "role",
	"default_delivery_note", "created_at",
}

var staffRoles = []string{models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff}

const customersLimit = 200

// Riders lists rider profiles newest first. When the schema predates an
// optional column the list is fetched without it.
func (c *Client) Riders(ctx context.Context, p ListParams) ([]models.Rider, error) {
	attempt := func(ctx context.Context, cols []string) ([]models.Rider, error) {
		return list[models.Rider](ctx, c, remote.From("profiles").Select(cols...).
			Eq("role", models.RoleRider).
			Where(c.branchFilter(p.Branch)...).
			OrderBy("created_at", false))
	}
	out, err := retry.Once(ctx, riderFields, attempt, dropSelectColumn)
	if err != nil {
		return nil, fmt.Errorf("riders: %w", err)
	}
	if out.Retried {
		c.log.Warn("riders listed without optional column", zap.String("column", out.Cause.Column))
	}
	return out.Value, nil
}

func dropSelectColumn(_ context.Context, cols []string, cl errclass.Classification) ([]string, bool) {
	if cl.Kind != errclass.UndefinedColumn || cl.Column == "" {
		return cols, false
	}
	next := make([]string, 0, len(cols))
	for _, col := range cols {
		if col != cl.Column {
			next = append(next, col)
		}
	}
	return next, len(next) < len(cols)
}

// UpdateRider updates a rider profile, dropping optional columns the
// deployed schema does not have.
func (c *Client) UpdateRider(ctx context.Context, id string, row remote.Row) (WriteResult, error) {
	if id == "" || len(row) == 0 {
		return WriteResult{}, ErrInvalidInput
	}
	return c.updateProfile(ctx, "update rider", row, remote.Eq("id", id), remote.Eq("role", models.RoleRider))
}

// UpdateProfile is UpdateRider for any profile.
func (c *Client) UpdateProfile(ctx context.Context, id string, row remote.Row) (WriteResult, error) {
	if id == "" || len(row) == 0 {
		return WriteResult{}, ErrInvalidInput
	}
	return c.updateProfile(ctx, "update profile", row, remote.Eq("id", id))
}

func (c *Client) updateProfile(ctx context.Context, op string, row remote.Row, where ...remote.Filter) (WriteResult, error) {
	attempt := func(ctx context.Context, payload remote.Row) (int64, error) {
		return c.svc.Update(ctx, "profiles", payload, where...)
	}
	out, err := retry.Once(ctx, row, attempt, retry.StripUnknownColumn(optionalProfileColumns...))
	res := c.writeResult(op, row, out.Payload, out.Retried)
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.Affected = out.Value
	return res, nil
}

// InsertRider creates a rider profile; role is always rider.
func (c *Client) InsertRider(ctx context.Context, row remote.Row) (WriteResult, error) {
	if len(row) == 0 {
		return WriteResult{}, ErrInvalidInput
	}
	payload := c.withBranch(row)
	payload["role"] = models.RoleRider
	attempt := func(ctx context.Context, p remote.Row) (remote.Row, error) {
		return c.svc.Insert(ctx, "profiles", p)
	}
	out, err := retry.Once(ctx, payload, attempt, retry.StripUnknownColumn(optionalProfileColumns...))
	res := c.writeResult("insert rider", payload, out.Payload, out.Retried)
	if err != nil {
		return res, fmt.Errorf("insert rider: %w", err)
	}
	res.Row = out.Value
	res.Affected = 1
	return res, nil
}

func (c *Client) writeResult(op string, sent, final remote.Row, retried bool) WriteResult {
	res := WriteResult{SchemaFallback: retried}
	if retried {
		res.Dropped = retry.Dropped(sent, final)
		c.log.Warn("schema fallback", zap.String("op", op), zap.Strings("dropped", res.Dropped))
	}
	return res
}

func (c *Client) StaffProfiles(ctx context.Context, p ListParams) ([]models.StaffProfile, error) {
	staff, err := list[models.StaffProfile](ctx, c, remote.From("profiles").
		Where(remote.In("role", staffRoles)).
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("staff profiles: %w", err)
	}
	return staff, nil
}

func (c *Client) StaffAllowlist(ctx context.Context) ([]models.StaffAllowlistEntry, error) {
	entries, err := list[models.StaffAllowlistEntry](ctx, c, remote.From("staff_allowlist").
		OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("staff allowlist: %w", err)
	}
	return entries, nil
}

// UpsertStaffAllowlist grants role to email, replacing any previous grant.
func (c *Client) UpsertStaffAllowlist(ctx context.Context, email, role string) (remote.Row, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || role == "" {
		return nil, ErrInvalidInput
	}
	row, err := c.svc.Upsert(ctx, "staff_allowlist", remote.Row{"email": email, "role": role}, "email")
	if err != nil {
		return nil, fmt.Errorf("upsert staff allowlist: %w", err)
	}
	return row, nil
}

func (c *Client) Customers(ctx context.Context, limit int) ([]models.Customer, error) {
	customers, err := list[models.Customer](ctx, c, remote.From("profiles").
		Select("id", "name", "phone", "email", "created_at").
		Eq("role", models.RoleCustomer).
		OrderBy("created_at", false).
		WithLimit(limitOr(limit, customersLimit)))
	if err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}
	return customers, nil
}

func (c *Client) AddressesForUser(ctx context.Context, userID string) ([]models.Address, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	addrs, err := list[models.Address](ctx, c, remote.From("addresses").
		Select("id", "label", "address", "landmark", "created_at").
		Eq("user_id", userID).
		OrderBy("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("addresses for %s: %w", userID, err)
	}
	return addrs, nil
}
