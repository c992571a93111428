package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/events-marketplace/internal/model"
)

const bookingColumns = `id, event_id, user_id, qty, amount_cents, status, created_at, updated_at`

// BookingRepo manages persistence for bookings. Its active-count
// query is what the mutation policy reads before allowing a date
// change.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func scanBooking(row interface{ Scan(dest ...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Qty, &b.AmountCents,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a booking and populates its generated ID and
// timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (event_id, user_id, qty, amount_cents, status) VALUES (?,?,?,?,?)`,
		b.EventID, b.UserID, b.Qty, b.AmountCents, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID).Scan(
		&b.ID, &b.EventID, &b.UserID, &b.Qty, &b.AmountCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// CountActiveByEvent counts bookings for the event whose status is
// neither CANCELLED nor REFUNDED. Quantities are not summed here:
// the mutation policy cares about how many bookings would be
// disrupted, capacity checks sum qty separately.
func (r *BookingRepo) CountActiveByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status NOT IN ('CANCELLED', 'REFUNDED')`,
		eventID).Scan(&n)
	return n, err
}

// SumActiveQtyByEvent sums the booked quantity still occupying the
// event's capacity.
func (r *BookingRepo) SumActiveQtyByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(qty), 0) FROM bookings WHERE event_id = ? AND status NOT IN ('CANCELLED', 'REFUNDED')`,
		eventID).Scan(&n)
	return n, err
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel marks a booking cancelled if it belongs to the user and is
// still active. ErrForbidden is returned for someone else's booking,
// ErrConflict when it was already cancelled or refunded.
func (r *BookingRepo) Cancel(ctx context.Context, id, userID uint64) error {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	if !b.Status.Active() {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED', updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}
