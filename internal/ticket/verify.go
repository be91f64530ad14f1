package ticket

import (
    "crypto/hmac"
    "time"
)

// BookingRecord is the verifier's and coordinator's view of a stored
// booking. It is a read snapshot assembled by the store (booking row
// joined with its event and holder) and carries exactly the fields the
// check-in flow needs: the credential, the redemption state, the event
// start time for the check-in window and identifying details for staff
// display and the organizer authorisation gate.
type BookingRecord struct {
    ID          uint64     `json:"id"`
    EventID     uint64     `json:"event_id"`
    HolderID    uint64     `json:"holder_id"`
    OrganizerID uint64     `json:"-"`
    HolderName  string     `json:"holder_name"`
    HolderEmail string     `json:"holder_email"`
    EventTitle  string     `json:"event_title"`
    TicketType  string     `json:"ticket_type"`
    Quantity    uint32     `json:"quantity"`
    Status      string     `json:"status"`
    SecureToken string     `json:"-"`
    EventStarts time.Time  `json:"event_starts"`
    CheckedIn   bool       `json:"checked_in"`
    CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// Reason strings returned for each failed verification check. Staff
// need to distinguish a stale regenerated code (token mismatch) from a
// wrong-event scan, so failures are never collapsed into one message.
const (
    ReasonBookingMismatch = "booking id mismatch"
    ReasonEventMismatch   = "event id mismatch"
    ReasonHolderMismatch  = "holder mismatch"
    ReasonTokenMismatch   = "invalid security token"
)

// VerifyResult reports whether a payload matches the stored credential
// and, when it does not, every check that failed.
type VerifyResult struct {
    Valid  bool     `json:"valid"`
    Errors []string `json:"errors"`
}

// Verify compares a presented payload against the stored booking. It
// is pure: no redemption state, cancellation or window checks happen
// here, so a forged payload never learns whether a booking is already
// checked in. Holder mismatch counts as a failure even though the
// holder is not part of the token derivation.
func Verify(p Payload, b BookingRecord) VerifyResult {
    errs := make([]string, 0, 4)
    if p.BookingID != b.ID {
        errs = append(errs, ReasonBookingMismatch)
    }
    if p.EventID != b.EventID {
        errs = append(errs, ReasonEventMismatch)
    }
    if p.HolderID != b.HolderID {
        errs = append(errs, ReasonHolderMismatch)
    }
    if !hmac.Equal([]byte(p.Token), []byte(b.SecureToken)) {
        errs = append(errs, ReasonTokenMismatch)
    }
    return VerifyResult{Valid: len(errs) == 0, Errors: errs}
}
