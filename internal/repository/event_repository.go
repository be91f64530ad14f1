package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/gigpass/gigpass/internal/model"
)

// EventRepo provides CRUD operations for events and their ticket
// tiers. All timestamp columns are stored in UTC.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts an event and its ticket tiers in one transaction and
// populates the generated IDs on the passed structs.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event, tiers []model.TicketType) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        `INSERT INTO events (organizer_id, title, description, category, venue, starts_at, status)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        ev.OrganizerID, ev.Title, ev.Description, ev.Category, ev.Venue,
        ev.StartsAt.UTC().Format("2006-01-02 15:04:05"), ev.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)

    if len(tiers) > 0 {
        query := `INSERT INTO event_ticket_types (event_id, name, price_cents, quantity) VALUES `
        args := make([]interface{}, 0, len(tiers)*4)
        for i := range tiers {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?)"
            args = append(args, ev.ID, tiers[i].Name, tiers[i].PriceCents, tiers[i].Quantity)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a single event. ErrEventNotFound is returned when no
// row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, category, venue, starts_at, status, created_at, updated_at
               FROM events WHERE id = ?`
    var ev model.Event
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Category,
        &ev.Venue, &ev.StartsAt, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrEventNotFound
    }
    if err != nil {
        return nil, err
    }
    return &ev, nil
}

// TicketTypes lists the ticket tiers of an event ordered by price.
func (r *EventRepo) TicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
    const q = `SELECT id, event_id, name, price_cents, quantity, sold
               FROM event_ticket_types WHERE event_id = ? ORDER BY price_cents, name`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.TicketType, 0)
    for rows.Next() {
        var tt model.TicketType
        if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.PriceCents, &tt.Quantity, &tt.Sold); err != nil {
            return nil, err
        }
        out = append(out, tt)
    }
    return out, rows.Err()
}

// TicketTypeForUpdateTx locks one ticket tier row for the duration of
// the transaction so availability checks and sold-counter bumps are
// serialized per tier. sql.ErrNoRows means the tier does not exist.
func (r *EventRepo) TicketTypeForUpdateTx(ctx context.Context, tx *sql.Tx, eventID uint64, name string) (model.TicketType, error) {
    const q = `SELECT id, event_id, name, price_cents, quantity, sold
               FROM event_ticket_types WHERE event_id = ? AND name = ? FOR UPDATE`
    var tt model.TicketType
    err := tx.QueryRowContext(ctx, q, eventID, name).Scan(
        &tt.ID, &tt.EventID, &tt.Name, &tt.PriceCents, &tt.Quantity, &tt.Sold)
    return tt, err
}

// AddSoldTx adjusts a tier's sold counter by delta (negative on
// cancellation). The counter is clamped at zero.
func (r *EventRepo) AddSoldTx(ctx context.Context, tx *sql.Tx, ticketTypeID uint64, delta int) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE event_ticket_types SET sold = GREATEST(0, CAST(sold AS SIGNED) + ?) WHERE id = ?`,
        delta, ticketTypeID)
    return err
}

// UpdateStatus moves an event to a new status after verifying the
// caller owns it. ErrEventNotFound and ErrForbidden distinguish the
// two failure cases.
func (r *EventRepo) UpdateStatus(ctx context.Context, eventID, organizerID uint64, status string) error {
    var actual uint64
    err := r.db.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ?`, eventID).Scan(&actual)
    if err == sql.ErrNoRows {
        return ErrEventNotFound
    }
    if err != nil {
        return err
    }
    if actual != organizerID {
        return ErrForbidden
    }
    _, err = r.db.ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, status, eventID)
    return err
}

// EventSearchQuery defines filters and pagination for browsing events.
type EventSearchQuery struct {
    Title      string
    Category   string
    Venue      string
    TimeFilter string
    Page       int
    PageSize   int
}

// PublicEventRow is the sanitized listing row returned to browsers.
type PublicEventRow struct {
    ID            uint64  `json:"id"`
    Title         string  `json:"title"`
    Category      string  `json:"category"`
    Venue         string  `json:"venue"`
    StartsAt      string  `json:"starts_at"`
    MinPriceCents uint64  `json:"min_price_cents"`
    MinPrice      float64 `json:"min_price"`
}

// SearchUpcoming returns published events matching the query plus the
// total match count for pagination. By default only events that have
// not started yet are listed; TimeFilter "any" disables that.
func (r *EventRepo) SearchUpcoming(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
    where := []string{"e.status = 'published'"}
    args := []any{}

    if strings.ToLower(q.TimeFilter) != "any" {
        where = append(where, "e.starts_at >= NOW()")
    }
    if q.Title != "" {
        where = append(where, "LOWER(e.title) LIKE ?")
        args = append(args, "%"+strings.ToLower(q.Title)+"%")
    }
    if q.Category != "" {
        where = append(where, "LOWER(e.category) = ?")
        args = append(args, strings.ToLower(q.Category))
    }
    if q.Venue != "" {
        where = append(where, "LOWER(e.venue) LIKE ?")
        args = append(args, "%"+strings.ToLower(q.Venue)+"%")
    }
    cond := strings.Join(where, " AND ")

    var total int64
    countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
    if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    limit := q.PageSize
    offset := (q.Page - 1) * q.PageSize

    dataSQL := `SELECT
            e.id,
            e.title,
            e.category,
            e.venue,
            DATE_FORMAT(e.starts_at, '%Y-%m-%d %T') AS starts_at,
            COALESCE((SELECT MIN(t.price_cents) FROM event_ticket_types t WHERE t.event_id = e.id), 0) AS min_price_cents
        FROM events e
        WHERE ` + cond + `
        ORDER BY e.starts_at ASC
        LIMIT ? OFFSET ?`

    argsData := append(append([]any{}, args...), limit, offset)
    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]PublicEventRow, 0, limit)
    for rows.Next() {
        var d PublicEventRow
        if err := rows.Scan(&d.ID, &d.Title, &d.Category, &d.Venue, &d.StartsAt, &d.MinPriceCents); err != nil {
            return nil, 0, err
        }
        d.MinPrice = float64(d.MinPriceCents) / 100.0
        out = append(out, d)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}

// ListByOrganizer returns all events created by one organizer, newest
// first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, category, venue, starts_at, status, created_at, updated_at
               FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, organizerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        if err := rows.Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Category,
            &ev.Venue, &ev.StartsAt, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, ev)
    }
    return out, rows.Err()
}
