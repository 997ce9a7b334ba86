package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var orderColumns = []string{
	"id", "session_id", "branch", "slot_start", "customer_name", "email", "phone", "address",
	"vehicle_size", "vehicle", "package", "addons", "price_before_tax", "price_after_tax",
	"paid", "status", "created_at", "updated_at",
}

func (db *DB) CreateOrder(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	query, args, err := db.sb.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID, o.SessionID, o.Branch, o.SlotStart, o.CustomerName, o.Email, o.Phone, o.Address,
			string(o.VehicleSize), o.Vehicle, string(o.Package), o.Addons, o.PriceBeforeTax, o.PriceAfterTax,
			o.Paid, o.Status, o.CreatedAt, o.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreateOrder: %v", ErrBuildQuery, err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: CreateOrder: %v", ErrExecQuery, err)
	}
	return nil
}

func (db *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query, args, err := db.sb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetOrder: %v", ErrBuildQuery, err)
	}

	o, err := scanOrder(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetOrder: %v", ErrExecQuery, err)
	}
	return o, nil
}

// ListOrders returns orders created in [from, to), oldest first. A zero
// bound is open.
func (db *DB) ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	sel := db.sb.Select(orderColumns...).From("orders").OrderBy("created_at ASC")
	if !from.IsZero() {
		sel = sel.Where(sq.GtOrEq{"created_at": from.UTC()})
	}
	if !to.IsZero() {
		sel = sel.Where(sq.Lt{"created_at": to.UTC()})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListOrders: %v", ErrBuildQuery, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListOrders: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (db *DB) UpdateOrderStatus(ctx context.Context, id string, status string) error {
	query, args, err := db.sb.Update("orders").
		Set("status", status).
		Set("paid", sq.Expr("paid OR ?", status == models.OrderStatusPaid)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateOrderStatus: %v", ErrBuildQuery, err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateOrderStatus: %v", ErrExecQuery, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o                    models.Order
		size, pkg            string
		name, email, phone   sql.NullString
		address, vehicle, ad sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.SessionID, &o.Branch, &o.SlotStart, &name, &email, &phone, &address,
		&size, &vehicle, &pkg, &ad, &o.PriceBeforeTax, &o.PriceAfterTax,
		&o.Paid, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CustomerName, o.Email, o.Phone, o.Address = name.String, email.String, phone.String, address.String
	o.VehicleSize, o.Package = models.SizeClass(size), models.Package(pkg)
	o.Vehicle, o.Addons = vehicle.String, ad.String
	return &o, nil
}
