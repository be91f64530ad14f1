package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/gigpass/gigpass/internal/model"
    "github.com/gigpass/gigpass/internal/queue"
    "github.com/gigpass/gigpass/internal/repository"
    queue_publisher "github.com/gigpass/gigpass/internal/service"
    "github.com/gigpass/gigpass/internal/ticket"
)

// CheckinHandler implements the door-staff side: verifying scanned
// codes, redeeming tickets (by scan or manually by booking id) and the
// attendee lookups staff use when a code will not scan.
type CheckinHandler struct {
    Bookings *repository.BookingRepo
    Events   *repository.EventRepo
    Coord    *ticket.Coordinator
}

func NewCheckinHandler(b *repository.BookingRepo, e *repository.EventRepo, coord *ticket.Coordinator) *CheckinHandler {
    if b == nil || e == nil || coord == nil {
        panic("nil dependency passed to NewCheckinHandler")
    }
    return &CheckinHandler{Bookings: b, Events: e, Coord: coord}
}

type scanReq struct {
    // Payload is the raw string decoded from the QR code, i.e. the
    // compact JSON object embedded at issuance.
    Payload string `json:"payload"`
}

// canManage reports whether the requester may operate check-in for
// the given event organizer: the organizer themself or an admin.
func canManage(c echo.Context, organizerID uint64) bool {
    if getRole(c) == model.RoleAdmin {
        return true
    }
    uid, err := getUserID(c)
    return err == nil && uid == organizerID
}

// loadRecord parses the scanned payload and loads the referenced
// booking. The booking id inside the payload decides which record is
// compared; all other fields are verified against it.
func (h *CheckinHandler) loadRecord(ctx context.Context, raw string) (ticket.Payload, ticket.BookingRecord, error) {
    p, err := ticket.ParsePayload([]byte(raw))
    if err != nil {
        return ticket.Payload{}, ticket.BookingRecord{}, err
    }
    rec, err := h.Bookings.Booking(ctx, p.BookingID)
    if err != nil {
        return p, ticket.BookingRecord{}, err
    }
    return p, rec, nil
}

// Verify checks a scanned payload against the stored credential
// without redeeming anything. Staff use it for a dry-run look at a
// ticket; every failed check is reported, not just the first.
func (h *CheckinHandler) Verify(c echo.Context) error {
    var req scanReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, rec, err := h.loadRecord(ctx, req.Payload)
    if err != nil {
        switch err {
        case ticket.ErrMalformedPayload:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
        case ticket.ErrBookingNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
        }
    }
    if !canManage(c, rec.OrganizerID) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
    }

    res := ticket.Verify(p, rec)
    body := echo.Map{"valid": res.Valid, "errors": res.Errors}
    if res.Valid {
        body["booking"] = rec
    }
    return c.JSON(http.StatusOK, body)
}

// CheckIn is the scan path: verify the payload, then redeem the
// booking exactly once. Verification failures never touch redemption
// state. Rejections (cancelled, outside the window, already redeemed)
// come back as 409 with a tagged outcome so the door UI can explain
// exactly what happened; 5xx means the attempt may be retried.
func (h *CheckinHandler) CheckIn(c echo.Context) error {
    var req scanReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Payload) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    p, rec, err := h.loadRecord(ctx, req.Payload)
    if err != nil {
        switch err {
        case ticket.ErrMalformedPayload:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
        case ticket.ErrBookingNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
        }
    }
    if !canManage(c, rec.OrganizerID) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
    }

    if res := ticket.Verify(p, rec); !res.Valid {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"valid": false, "errors": res.Errors})
    }

    return h.redeem(ctx, c, rec.ID, "scan")
}

// CheckInByID is the manual fallback used when a code will not scan:
// staff look the booking up (see Search) and redeem it directly by id.
// It skips payload verification but runs the identical redemption
// gates, so it can never bypass the single-use guarantee.
func (h *CheckinHandler) CheckInByID(c echo.Context) error {
    bookingID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    rec, err := h.Bookings.Booking(ctx, bookingID)
    if err != nil {
        if err == ticket.ErrBookingNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !canManage(c, rec.OrganizerID) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
    }

    return h.redeem(ctx, c, bookingID, "manual")
}

// redeem runs the coordinator and maps its outcome onto HTTP. Success
// additionally publishes a checked-in event to the broker; publish
// failures are ignored because the redemption is already durable.
func (h *CheckinHandler) redeem(ctx context.Context, c echo.Context, bookingID uint64, method string) error {
    out, err := h.Coord.Redeem(ctx, bookingID)
    if err != nil {
        if err == ticket.ErrBookingNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed, try again"})
    }
    if out.Code != ticket.OutcomeSuccess {
        return c.JSON(http.StatusConflict, out)
    }

    b := out.Booking
    ev := queue.BookingCheckedInEvent{
        BookingID:   b.ID,
        EventID:     b.EventID,
        HolderID:    b.HolderID,
        HolderName:  b.HolderName,
        EventTitle:  b.EventTitle,
        TicketType:  b.TicketType,
        Quantity:    b.Quantity,
        Method:      method,
        CheckedInAt: b.CheckedInAt.UTC().Format(time.RFC3339),
    }
    go func() {
        pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queue_publisher.PublishBookingCheckedIn(pubCtx, ev)
    }()

    return c.JSON(http.StatusOK, out)
}

// requireEventAccess loads the event and enforces the organizer/admin
// gate shared by the staff listing endpoints.
func (h *CheckinHandler) requireEventAccess(ctx context.Context, c echo.Context) (uint64, error) {
    eventID, err := paramID(c, "id")
    if err != nil {
        return 0, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(ctx, eventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return 0, c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return 0, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !canManage(c, ev.OrganizerID) {
        return 0, c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
    }
    return eventID, nil
}

// Attendees lists all bookings of one event for its organizer, with
// the running revenue over non-cancelled bookings.
func (h *CheckinHandler) Attendees(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    eventID, err := h.requireEventAccess(ctx, c)
    if err != nil || eventID == 0 {
        return err
    }
    rows, revenue, err := h.Bookings.ListByEvent(ctx, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "bookings":      rows,
        "revenue_cents": revenue,
    })
}

// Search finds bookings of one event by booking id, holder name or
// email. Queries shorter than three characters are rejected so a
// hurried scan of "a" cannot dump the attendee list.
func (h *CheckinHandler) Search(c echo.Context) error {
    q := strings.TrimSpace(c.QueryParam("q"))
    if len(q) < 3 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "query must be at least 3 characters"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    eventID, err := h.requireEventAccess(ctx, c)
    if err != nil || eventID == 0 {
        return err
    }
    rows, err := h.Bookings.Search(ctx, eventID, q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": rows})
}

// Stats reports per-event check-in progress for the organizer's
// door dashboard.
func (h *CheckinHandler) Stats(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    eventID, err := h.requireEventAccess(ctx, c)
    if err != nil || eventID == 0 {
        return err
    }
    stats, err := h.Bookings.CheckinStats(ctx, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, stats)
}

// AdminStats reports platform-wide booking totals. Admin only; the
// route guard enforces the role before this handler runs.
func (h *CheckinHandler) AdminStats(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    stats, err := h.Bookings.Stats(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, stats)
}
