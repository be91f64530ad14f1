// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingCheckedInEvent is published when a ticket is redeemed at the
// door. It carries enough information for downstream consumers to log,
// notify, or feed attendance analytics without querying the primary
// database.
type BookingCheckedInEvent struct {
    BookingID   uint64 `json:"booking_id"`
    EventID     uint64 `json:"event_id"`
    HolderID    uint64 `json:"holder_id"`
    HolderName  string `json:"holder_name"`
    EventTitle  string `json:"event_title"`
    TicketType  string `json:"ticket_type"`
    Quantity    uint32 `json:"quantity"`
    Method      string `json:"method"` // "scan" or "manual"
    CheckedInAt string `json:"checked_in_at"`
}
