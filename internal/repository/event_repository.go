package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
	"github.com/iliyamo/events-marketplace/internal/scheduling"
)

// eventColumns is the canonical column list every event SELECT uses,
// in scanEvent order.
const eventColumns = `id, slug, host_id, category_id, title, description, start_at, end_at, timezone,
       is_recurring, recurrence_pattern, recurrence_end_at, parent_event_id, status, mode, venue,
       meeting_url, is_free, price_cents, capacity, deleted_at, created_at, updated_at`

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries
// run inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EventRepo manages persistence for events. It implements
// scheduling.EventStore; InTx hands the scheduling core a repo bound
// to one serializable transaction.
type EventRepo struct {
	db *sql.DB
	q  dbtx
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db, q: db}
}

// InTx runs fn against a transaction-bound copy of the repo. The
// transaction is serializable: the availability pre-check and the
// dependent writes must not interleave with a concurrent request for
// the same host.
func (r *EventRepo) InTx(ctx context.Context, fn func(tx scheduling.EventStore) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(&EventRepo{db: r.db, q: tx})
	return err
}

func scanEvent(row interface{ Scan(dest ...any) error }) (*model.Event, error) {
	var (
		e        model.Event
		pattern  sql.NullString
		recurEnd sql.NullTime
		parentID sql.NullInt64
		deleted  sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.Slug, &e.HostID, &e.CategoryID, &e.Title, &e.Description,
		&e.StartAt, &e.EndAt, &e.Timezone, &e.IsRecurring, &pattern, &recurEnd,
		&parentID, &e.Status, &e.Mode, &e.Venue, &e.MeetingURL, &e.IsFree,
		&e.PriceCents, &e.Capacity, &deleted, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pattern.Valid {
		p := model.RecurrencePattern(pattern.String)
		e.RecurrencePattern = &p
	}
	if recurEnd.Valid {
		t := recurEnd.Time
		e.RecurrenceEndAt = &t
	}
	if parentID.Valid {
		id := uint64(parentID.Int64)
		e.ParentEventID = &id
	}
	if deleted.Valid {
		t := deleted.Time
		e.DeletedAt = &t
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEvent returns a non-deleted event, or (nil, nil) when it does
// not exist.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND deleted_at IS NULL`
	e, err := scanEvent(r.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// GetBySlug returns a non-deleted event by its slug. It returns
// ErrEventNotFound when there is no matching row.
func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE slug = ? AND deleted_at IS NULL`
	e, err := scanEvent(r.q.QueryRowContext(ctx, q, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// SlugExists reports whether any non-deleted event uses the slug.
func (r *EventRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE slug = ? AND deleted_at IS NULL LIMIT 1`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CategoryExists reports whether a category row exists.
func (r *EventRepo) CategoryExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateEvent inserts the event and populates its generated ID and
// DB-default timestamps. Unique-key violations on the slug or on the
// (host_id, start_at) backstop index are translated into the same
// ConflictError the scheduling pre-checks produce, so a race that
// slips past the pre-check surfaces identically.
func (r *EventRepo) CreateEvent(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events
        (slug, host_id, category_id, title, description, start_at, end_at, timezone,
         is_recurring, recurrence_pattern, recurrence_end_at, parent_event_id, status,
         mode, venue, meeting_url, is_free, price_cents, capacity)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	var pattern, recurEnd, parentID any
	if e.RecurrencePattern != nil {
		pattern = string(*e.RecurrencePattern)
	}
	if e.RecurrenceEndAt != nil {
		recurEnd = e.RecurrenceEndAt.UTC()
	}
	if e.ParentEventID != nil {
		parentID = *e.ParentEventID
	}
	res, err := r.q.ExecContext(ctx, q,
		e.Slug, e.HostID, e.CategoryID, e.Title, e.Description,
		e.StartAt.UTC(), e.EndAt.UTC(), e.Timezone,
		e.IsRecurring, pattern, recurEnd, parentID, e.Status,
		e.Mode, e.Venue, e.MeetingURL, e.IsFree, e.PriceCents, e.Capacity)
	if err != nil {
		return translateDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	sel := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	fresh, err := scanEvent(r.q.QueryRowContext(ctx, sel, e.ID))
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// UpdateEventFields applies the given column/value pairs to one
// event row. Keys are column names; the SET clause is built in
// sorted order so queries stay deterministic.
func (r *EventRepo) UpdateEventFields(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return ErrNoChange
	}
	cols := make([]string, 0, len(fields))
	for c := range fields {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var b strings.Builder
	args := make([]any, 0, len(fields)+1)
	b.WriteString("UPDATE events SET ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(" = ?")
		args = append(args, fields[c])
	}
	b.WriteString(", updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL")
	args = append(args, id)
	res, err := r.q.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return translateDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row may be missing or already carry these values; callers
		// loaded the event beforehand, so treat it as gone.
		var one int
		if err := r.q.QueryRowContext(ctx,
			`SELECT 1 FROM events WHERE id = ? AND deleted_at IS NULL`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return err
		}
	}
	return nil
}

// FindOverlapping returns the host's non-terminal, non-deleted events
// whose [start_at, end_at) window overlaps [start, end). The single
// pair of inequalities is the whole half-open overlap test; touching
// boundaries do not match. excludeID, when non-zero, leaves that
// event out so updates do not conflict with themselves.
func (r *EventRepo) FindOverlapping(ctx context.Context, hostID uint64, start, end time.Time, excludeID uint64) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events
          WHERE host_id = ? AND deleted_at IS NULL
            AND status NOT IN ('CANCELLED', 'COMPLETED')
            AND id <> ?
            AND start_at < ? AND end_at > ?
          ORDER BY start_at ASC`
	rows, err := r.q.QueryContext(ctx, q, hostID, excludeID, end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListFutureInstances returns the instances of a template whose start
// is at or after from, ordered by start time.
func (r *EventRepo) ListFutureInstances(ctx context.Context, parentID uint64, from time.Time) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events
          WHERE parent_event_id = ? AND deleted_at IS NULL AND start_at >= ?
          ORDER BY start_at ASC`
	rows, err := r.q.QueryContext(ctx, q, parentID, from.UTC())
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListInstances returns every non-deleted instance of a template,
// past and future, ordered by start time.
func (r *EventRepo) ListInstances(ctx context.Context, parentID uint64) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events
          WHERE parent_event_id = ? AND deleted_at IS NULL
          ORDER BY start_at ASC`
	rows, err := r.q.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListByHost returns every non-deleted event the host owns, newest
// start first.
func (r *EventRepo) ListByHost(ctx context.Context, hostID uint64) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events
          WHERE host_id = ? AND deleted_at IS NULL
          ORDER BY start_at DESC`
	rows, err := r.q.QueryContext(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// SearchUpcoming powers the public browse endpoint: published,
// not-yet-started events matching the optional search term, series
// templates excluded since they are not bookable. Pagination via
// limit/offset.
func (r *EventRepo) SearchUpcoming(ctx context.Context, term string, categoryID uint64, now time.Time, limit, offset int) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events
          WHERE deleted_at IS NULL AND status = 'PUBLISHED'
            AND is_recurring = FALSE
            AND start_at > ?`
	args := []any{now.UTC()}
	if term != "" {
		q += ` AND (title LIKE ? OR description LIKE ? OR venue LIKE ?)`
		like := "%" + term + "%"
		args = append(args, like, like, like)
	}
	if categoryID != 0 {
		q += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	q += ` ORDER BY start_at ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListCategories returns every category, ordered by name. The set is
// small and managed by migrations; no pagination.
func (r *EventRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SoftDeleteEvent marks the event deleted; queries above stop
// returning it.
func (r *EventRepo) SoftDeleteEvent(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CancelFutureInstances flips a template's not-yet-started instances
// to CANCELLED and reports how many rows changed. Past instances are
// kept for history.
func (r *EventRepo) CancelFutureInstances(ctx context.Context, parentID uint64, from time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE events SET status = 'CANCELLED', updated_at = CURRENT_TIMESTAMP
          WHERE parent_event_id = ? AND deleted_at IS NULL AND start_at >= ?
            AND status NOT IN ('CANCELLED', 'COMPLETED')`,
		parentID, from.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// translateDuplicate maps MySQL duplicate-key errors (1062) onto the
// scheduling conflict type. The (host_id, start_at) unique index is
// the storage backstop for the double-booking race; hitting it must
// look exactly like failing the availability pre-check.
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") && !strings.Contains(msg, "duplicate entry") {
		return err
	}
	if strings.Contains(msg, "slug") {
		return &scheduling.ConflictError{Reason: "slug is already in use"}
	}
	return &scheduling.ConflictError{Reason: "host already has an event starting at this time"}
}
