package model

import "time"

// Event status values stored in the events.status column. Only
// published events accept bookings; cancelled and completed events
// are kept for history.
const (
    EventStatusDraft     = "draft"
    EventStatusPublished = "published"
    EventStatusCancelled = "cancelled"
    EventStatusCompleted = "completed"
)

// Event represents a ticketed event as stored in the `events` table.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who created and manages the event.
//  Title       – event title.
//  Description – free-form description.
//  Category    – coarse categorisation (concert, conference, ...).
//  Venue       – physical or virtual location string.
//  StartsAt    – when the event begins; anchors the check-in window.
//  Status      – one of the EventStatus* constants.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64    // events.id
    OrganizerID uint64    // events.organizer_id
    Title       string    // events.title
    Description string    // events.description
    Category    string    // events.category
    Venue       string    // events.venue
    StartsAt    time.Time // events.starts_at
    Status      string    // events.status
    CreatedAt   time.Time // events.created_at
    UpdatedAt   time.Time // events.updated_at
}

// TicketType is one price tier of an event (`event_ticket_types`
// table). Sold is bumped on booking and decremented on cancellation
// so availability is Quantity - Sold.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – owning event.
//  Name       – tier name, unique per event (e.g. "general", "vip").
//  PriceCents – price per ticket in cents.
//  Quantity   – total tickets available in this tier.
//  Sold       – tickets sold so far.
type TicketType struct {
    ID         uint64 // event_ticket_types.id
    EventID    uint64 // event_ticket_types.event_id
    Name       string // event_ticket_types.name
    PriceCents uint32 // event_ticket_types.price_cents
    Quantity   uint32 // event_ticket_types.quantity
    Sold       uint32 // event_ticket_types.sold
}
