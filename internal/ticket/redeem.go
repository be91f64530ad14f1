package ticket

import (
    "context"
    "errors"
    "time"

    "github.com/gigpass/gigpass/internal/model"
)

// CheckinWindow is how far on either side of the event start a ticket
// may be redeemed.
const CheckinWindow = 24 * time.Hour

// ErrBookingNotFound is returned by Store implementations when no
// booking exists for the given ID. Store errors other than this one
// are infrastructure failures and must be surfaced as retryable, never
// as "ticket invalid".
var ErrBookingNotFound = errors.New("ticket: booking not found")

// Store is the minimal durable-booking access the redemption
// coordinator needs. MarkCheckedIn must be a single conditional write
// (update only while not yet checked in) so that concurrent
// redemptions of the same booking cannot both succeed; it reports
// false, nil when the booking was already checked in.
type Store interface {
    Booking(ctx context.Context, bookingID uint64) (BookingRecord, error)
    MarkCheckedIn(ctx context.Context, bookingID uint64, at time.Time) (bool, error)
}

// OutcomeCode tags the result of a redemption attempt.
type OutcomeCode string

const (
    OutcomeSuccess         OutcomeCode = "success"
    OutcomeCancelled       OutcomeCode = "cancelled"
    OutcomeTooEarly        OutcomeCode = "too_early"
    OutcomeTooLate         OutcomeCode = "too_late"
    OutcomeAlreadyRedeemed OutcomeCode = "already_redeemed"
)

// Outcome is the tagged result of a redemption attempt. Expected
// rejections (cancelled, outside window, already redeemed) are
// ordinary values; the error return of Redeem is reserved for store
// failures. Each rejection carries the context staff need to resolve
// disputes at the door.
type Outcome struct {
    Code        OutcomeCode    `json:"code"`
    Booking     *BookingRecord `json:"booking,omitempty"`       // set on success
    EventStarts time.Time      `json:"event_starts,omitzero"`   // set on too_early
    CheckedInAt time.Time      `json:"checked_in_at,omitzero"`  // set on already_redeemed
}

// Coordinator performs the single-use check-in transition against the
// durable booking store.
type Coordinator struct {
    store Store
    now   func() time.Time
}

// NewCoordinator returns a Coordinator bound to the given store.
func NewCoordinator(store Store) *Coordinator {
    return &Coordinator{store: store, now: time.Now}
}

// Redeem re-fetches the booking and attempts the one-time transition.
// Gates run in a fixed order: cancellation, check-in window, prior
// redemption, then the conditional write. The window is
// [start-24h, start+24h] with inclusive edges: rejection requires the
// current time to be strictly before or strictly after a boundary.
//
// The coordinator is authorization-agnostic; callers gate access to it
// (organizer of the event or an admin) before invoking Redeem.
func (c *Coordinator) Redeem(ctx context.Context, bookingID uint64) (Outcome, error) {
    b, err := c.store.Booking(ctx, bookingID)
    if err != nil {
        return Outcome{}, err
    }
    if b.Status == model.BookingStatusCancelled || b.Status == model.BookingStatusRefunded {
        return Outcome{Code: OutcomeCancelled}, nil
    }
    now := c.now().UTC()
    if now.Before(b.EventStarts.Add(-CheckinWindow)) {
        return Outcome{Code: OutcomeTooEarly, EventStarts: b.EventStarts}, nil
    }
    if now.After(b.EventStarts.Add(CheckinWindow)) {
        return Outcome{Code: OutcomeTooLate}, nil
    }
    if b.CheckedIn {
        out := Outcome{Code: OutcomeAlreadyRedeemed}
        if b.CheckedInAt != nil {
            out.CheckedInAt = *b.CheckedInAt
        }
        return out, nil
    }
    ok, err := c.store.MarkCheckedIn(ctx, b.ID, now)
    if err != nil {
        return Outcome{}, err
    }
    if !ok {
        // Lost a concurrent race; read back the winner's timestamp.
        cur, err := c.store.Booking(ctx, bookingID)
        if err != nil {
            return Outcome{}, err
        }
        out := Outcome{Code: OutcomeAlreadyRedeemed}
        if cur.CheckedInAt != nil {
            out.CheckedInAt = *cur.CheckedInAt
        }
        return out, nil
    }
    at := now
    b.CheckedIn = true
    b.CheckedInAt = &at
    return Outcome{Code: OutcomeSuccess, Booking: &b}, nil
}
