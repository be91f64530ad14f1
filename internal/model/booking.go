package model

import "time"

// Booking status values stored in the bookings.status column.
// Cancelled and refunded bookings keep their ticket credential but
// are rejected at check-in.
const (
    BookingStatusPending   = "pending"
    BookingStatusConfirmed = "confirmed"
    BookingStatusCancelled = "cancelled"
    BookingStatusRefunded  = "refunded"
)

// Booking records a user's purchase of tickets for an event, plus
// the ticket credential issued for it and its one-time check-in
// state (`bookings` table).
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – attendee who made the booking (the holder).
//  EventID          – event being booked.
//  TicketTypeName   – name of the purchased ticket tier, denormalised
//                     so a later tier rename cannot reprice history.
//  TicketPriceCents – unit price at purchase time, in cents.
//  Quantity         – number of tickets in the booking.
//  TotalAmountCents – Quantity * TicketPriceCents.
//  Status           – one of the BookingStatus* constants.
//  PaymentRef       – external payment reference, if any.
//  SecureToken      – keyed-hash ticket credential; empty until issued,
//                     replaced wholesale on reissue.
//  QRCode           – rendered QR data URL for SecureToken; regenerated
//                     whenever SecureToken changes.
//  CheckedIn        – one-time redemption flag; false→true is the only
//                     legal transition.
//  CheckedInAt      – set exactly once, when CheckedIn becomes true.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
    ID               uint64     // bookings.id
    UserID           uint64     // bookings.user_id
    EventID          uint64     // bookings.event_id
    TicketTypeName   string     // bookings.ticket_type_name
    TicketPriceCents uint32     // bookings.ticket_price_cents
    Quantity         uint32     // bookings.quantity
    TotalAmountCents uint32     // bookings.total_amount_cents
    Status           string     // bookings.status
    PaymentRef       *string    // bookings.payment_ref (nullable)
    SecureToken      string     // bookings.secure_token
    QRCode           string     // bookings.qr_code
    CheckedIn        bool       // bookings.checked_in
    CheckedInAt      *time.Time // bookings.checked_in_at (nullable)
    CreatedAt        time.Time  // bookings.created_at
    UpdatedAt        time.Time  // bookings.updated_at
}
