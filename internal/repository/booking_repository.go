package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/gigpass/gigpass/internal/model"
    "github.com/gigpass/gigpass/internal/ticket"
)

// BookingRepo provides persistence for bookings and their ticket
// credentials. It also implements ticket.Store: Booking assembles the
// check-in snapshot and MarkCheckedIn is the single conditional write
// that makes redemption single-use under concurrency.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new booking within an existing transaction and
// populates the generated ID and timestamps on the provided record.
// The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings
        (user_id, event_id, ticket_type_name, ticket_price_cents, quantity, total_amount_cents, status, payment_ref)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        b.UserID, b.EventID, b.TicketTypeName, b.TicketPriceCents,
        b.Quantity, b.TotalAmountCents, b.Status, b.PaymentRef)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    // Query back the row to populate timestamps and defaults
    const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// SetCredentialTx stores a freshly issued secure token and rendered QR
// code on the booking, replacing any previous credential.
func (r *BookingRepo) SetCredentialTx(ctx context.Context, tx *sql.Tx, bookingID uint64, token, qrCode string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET secure_token = ?, qr_code = ? WHERE id = ?`,
        token, qrCode, bookingID)
    return err
}

// SetCredential is SetCredentialTx outside a transaction, used by the
// reissue endpoint.
func (r *BookingRepo) SetCredential(ctx context.Context, bookingID uint64, token, qrCode string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET secure_token = ?, qr_code = ? WHERE id = ?`,
        token, qrCode, bookingID)
    return err
}

// GetByID returns the raw booking row. sql.ErrNoRows when absent.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT id, user_id, event_id, ticket_type_name, ticket_price_cents, quantity,
                      total_amount_cents, status, payment_ref, secure_token, qr_code,
                      checked_in, checked_in_at, created_at, updated_at
               FROM bookings WHERE id = ?`
    var b model.Booking
    var payRef, token, qr sql.NullString
    var checkedInAt sql.NullTime
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.UserID, &b.EventID, &b.TicketTypeName, &b.TicketPriceCents, &b.Quantity,
        &b.TotalAmountCents, &b.Status, &payRef, &token, &qr,
        &b.CheckedIn, &checkedInAt, &b.CreatedAt, &b.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if payRef.Valid {
        ref := payRef.String
        b.PaymentRef = &ref
    }
    b.SecureToken = token.String
    b.QRCode = qr.String
    if checkedInAt.Valid {
        at := checkedInAt.Time.UTC()
        b.CheckedInAt = &at
    }
    return &b, nil
}

// GetForUpdateTx locks a booking row for the duration of the
// transaction. Used by cancellation to serialize status changes.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    const q = `SELECT id, user_id, event_id, ticket_type_name, ticket_price_cents, quantity,
                      total_amount_cents, status
               FROM bookings WHERE id = ? FOR UPDATE`
    var b model.Booking
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.UserID, &b.EventID, &b.TicketTypeName, &b.TicketPriceCents, &b.Quantity,
        &b.TotalAmountCents, &b.Status,
    )
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// UpdateStatusTx moves a booking to a new status inside a transaction.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
    return err
}

// Booking implements ticket.Store. It assembles the check-in snapshot:
// the booking row joined with its event (start time, organizer for the
// authorization gate) and holder (name and email for staff display).
func (r *BookingRepo) Booking(ctx context.Context, bookingID uint64) (ticket.BookingRecord, error) {
    const q = `SELECT b.id, b.event_id, b.user_id, e.organizer_id,
                      u.name, u.email, e.title, b.ticket_type_name, b.quantity,
                      b.status, b.secure_token, e.starts_at, b.checked_in, b.checked_in_at
               FROM bookings b
               JOIN events e ON e.id = b.event_id
               JOIN users u  ON u.id = b.user_id
               WHERE b.id = ?`
    var rec ticket.BookingRecord
    var token sql.NullString
    var checkedInAt sql.NullTime
    err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
        &rec.ID, &rec.EventID, &rec.HolderID, &rec.OrganizerID,
        &rec.HolderName, &rec.HolderEmail, &rec.EventTitle, &rec.TicketType, &rec.Quantity,
        &rec.Status, &token, &rec.EventStarts, &rec.CheckedIn, &checkedInAt,
    )
    if err == sql.ErrNoRows {
        return ticket.BookingRecord{}, ticket.ErrBookingNotFound
    }
    if err != nil {
        return ticket.BookingRecord{}, err
    }
    rec.SecureToken = token.String
    rec.EventStarts = rec.EventStarts.UTC()
    if checkedInAt.Valid {
        at := checkedInAt.Time.UTC()
        rec.CheckedInAt = &at
    }
    return rec, nil
}

// MarkCheckedIn implements ticket.Store. The WHERE clause is the
// compare-and-swap: the update only lands while checked_in is still
// false, so exactly one of any number of concurrent redemption
// attempts reports true.
func (r *BookingRepo) MarkCheckedIn(ctx context.Context, bookingID uint64, at time.Time) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET checked_in = 1, checked_in_at = ? WHERE id = ? AND checked_in = 0`,
        at.UTC().Format("2006-01-02 15:04:05"), bookingID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// BookingDetail is a booking joined with its event, returned to the
// holder when listing their bookings.
type BookingDetail struct {
    ID               uint64     `json:"id"`
    EventID          uint64     `json:"event_id"`
    EventTitle       string     `json:"event_title"`
    EventStartsAt    string     `json:"event_starts_at"`
    Venue            string     `json:"venue"`
    TicketTypeName   string     `json:"ticket_type_name"`
    Quantity         uint32     `json:"quantity"`
    TotalAmountCents uint32     `json:"total_amount_cents"`
    Status           string     `json:"status"`
    QRCode           string     `json:"qr_code,omitempty"`
    CheckedIn        bool       `json:"checked_in"`
    CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
}

// ListByUser returns all bookings for the given holder, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    const q = `SELECT b.id, b.event_id, e.title,
                      DATE_FORMAT(e.starts_at, '%Y-%m-%d %T'), e.venue,
                      b.ticket_type_name, b.quantity, b.total_amount_cents, b.status,
                      b.qr_code, b.checked_in, b.checked_in_at
               FROM bookings b
               JOIN events e ON e.id = b.event_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]BookingDetail, 0)
    for rows.Next() {
        var d BookingDetail
        var qr sql.NullString
        var checkedInAt sql.NullTime
        if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &d.EventStartsAt, &d.Venue,
            &d.TicketTypeName, &d.Quantity, &d.TotalAmountCents, &d.Status,
            &qr, &d.CheckedIn, &checkedInAt); err != nil {
            return nil, err
        }
        d.QRCode = qr.String
        if checkedInAt.Valid {
            at := checkedInAt.Time.UTC()
            d.CheckedInAt = &at
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// EventBookingRow is one attendee row in the organizer's per-event
// booking list and check-in search results.
type EventBookingRow struct {
    ID               uint64     `json:"id"`
    HolderID         uint64     `json:"holder_id"`
    HolderName       string     `json:"holder_name"`
    HolderEmail      string     `json:"holder_email"`
    TicketTypeName   string     `json:"ticket_type_name"`
    Quantity         uint32     `json:"quantity"`
    TotalAmountCents uint32     `json:"total_amount_cents"`
    Status           string     `json:"status"`
    CheckedIn        bool       `json:"checked_in"`
    CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
}

func scanEventBookingRows(rows *sql.Rows) ([]EventBookingRow, error) {
    out := make([]EventBookingRow, 0)
    for rows.Next() {
        var d EventBookingRow
        var checkedInAt sql.NullTime
        if err := rows.Scan(&d.ID, &d.HolderID, &d.HolderName, &d.HolderEmail,
            &d.TicketTypeName, &d.Quantity, &d.TotalAmountCents, &d.Status,
            &d.CheckedIn, &checkedInAt); err != nil {
            return nil, err
        }
        if checkedInAt.Valid {
            at := checkedInAt.Time.UTC()
            d.CheckedInAt = &at
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

const eventBookingColumns = `b.id, b.user_id, u.name, u.email,
        b.ticket_type_name, b.quantity, b.total_amount_cents, b.status,
        b.checked_in, b.checked_in_at`

// ListByEvent returns the non-cancelled bookings of an event together
// with the summed revenue in cents, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]EventBookingRow, uint64, error) {
    q := `SELECT ` + eventBookingColumns + `
          FROM bookings b
          JOIN users u ON u.id = b.user_id
          WHERE b.event_id = ? AND b.status NOT IN ('cancelled','refunded')
          ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out, err := scanEventBookingRows(rows)
    if err != nil {
        return nil, 0, err
    }
    var revenue uint64
    for _, d := range out {
        revenue += uint64(d.TotalAmountCents)
    }
    return out, revenue, nil
}

// Search finds bookings of one event by booking ID, holder name or
// holder email, case-insensitive substring match. The minimum query
// length is enforced by the handler. This is the manual fallback for
// door staff when a code cannot be scanned.
func (r *BookingRepo) Search(ctx context.Context, eventID uint64, query string) ([]EventBookingRow, error) {
    like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
    q := `SELECT ` + eventBookingColumns + `
          FROM bookings b
          JOIN users u ON u.id = b.user_id
          WHERE b.event_id = ?
            AND (CAST(b.id AS CHAR) LIKE ? OR LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ?)
          ORDER BY u.name
          LIMIT 50`
    rows, err := r.db.QueryContext(ctx, q, eventID, like, like, like)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanEventBookingRows(rows)
}

// BookingStats aggregates booking counts for the admin dashboard.
type BookingStats struct {
    Total        uint64 `json:"total"`
    Confirmed    uint64 `json:"confirmed"`
    Cancelled    uint64 `json:"cancelled"`
    CheckedIn    uint64 `json:"checked_in"`
    RevenueCents uint64 `json:"revenue_cents"`
}

// Stats returns global booking counters. Revenue counts only
// non-cancelled bookings.
func (r *BookingRepo) Stats(ctx context.Context) (BookingStats, error) {
    const q = `SELECT
            COUNT(*),
            COALESCE(SUM(status = 'confirmed'), 0),
            COALESCE(SUM(status IN ('cancelled','refunded')), 0),
            COALESCE(SUM(checked_in), 0),
            COALESCE(SUM(IF(status NOT IN ('cancelled','refunded'), total_amount_cents, 0)), 0)
        FROM bookings`
    var s BookingStats
    err := r.db.QueryRowContext(ctx, q).Scan(&s.Total, &s.Confirmed, &s.Cancelled, &s.CheckedIn, &s.RevenueCents)
    return s, err
}

// EventCheckinStats are the live counters shown on the scanner page.
type EventCheckinStats struct {
    Total     uint64 `json:"total"`
    CheckedIn uint64 `json:"checked_in"`
}

// CheckinStats counts non-cancelled bookings and check-ins for one event.
func (r *BookingRepo) CheckinStats(ctx context.Context, eventID uint64) (EventCheckinStats, error) {
    const q = `SELECT COUNT(*), COALESCE(SUM(checked_in), 0)
               FROM bookings
               WHERE event_id = ? AND status NOT IN ('cancelled','refunded')`
    var s EventCheckinStats
    err := r.db.QueryRowContext(ctx, q, eventID).Scan(&s.Total, &s.CheckedIn)
    return s, err
}
