package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/gigpass/gigpass/internal/model"
    "github.com/gigpass/gigpass/internal/repository"
    "github.com/gigpass/gigpass/internal/ticket"
)

// BookingHandler covers the attendee side: buying tickets, cancelling
// them, and retrieving the issued credential.
type BookingHandler struct {
    DB       *sql.DB
    Bookings *repository.BookingRepo
    Events   *repository.EventRepo
    Issuer   *ticket.Issuer
}

func NewBookingHandler(db *sql.DB, b *repository.BookingRepo, e *repository.EventRepo, iss *ticket.Issuer) *BookingHandler {
    if db == nil || b == nil || e == nil || iss == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{DB: db, Bookings: b, Events: e, Issuer: iss}
}

type createBookingReq struct {
    EventID    uint64 `json:"event_id"`
    TicketType string `json:"ticket_type"`
    Quantity   uint32 `json:"quantity"`
}

type bookingResp struct {
    ID               uint64    `json:"id"`
    EventID          uint64    `json:"event_id"`
    TicketTypeName   string    `json:"ticket_type_name"`
    Quantity         uint32    `json:"quantity"`
    TotalAmountCents uint32    `json:"total_amount_cents"`
    Status           string    `json:"status"`
    PaymentRef       string    `json:"payment_ref,omitempty"`
    QRCode           string    `json:"qr_code,omitempty"`
    CheckedIn        bool      `json:"checked_in"`
    CreatedAt        time.Time `json:"created_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
    resp := bookingResp{
        ID:               b.ID,
        EventID:          b.EventID,
        TicketTypeName:   b.TicketTypeName,
        Quantity:         b.Quantity,
        TotalAmountCents: b.TotalAmountCents,
        Status:           b.Status,
        QRCode:           b.QRCode,
        CheckedIn:        b.CheckedIn,
        CreatedAt:        b.CreatedAt,
    }
    if b.PaymentRef != nil {
        resp.PaymentRef = *b.PaymentRef
    }
    return resp
}

// Create books tickets on a published event and issues the ticket
// credential in the same transaction. The tier row is locked so
// concurrent purchases cannot oversell it.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.TicketType = strings.TrimSpace(req.TicketType)
    if req.EventID == 0 || req.TicketType == "" || req.Quantity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id, ticket_type and quantity required"})
    }
    if req.Quantity > 10 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "at most 10 tickets per booking"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    ev, err := h.Events.GetByID(ctx, req.EventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if ev.Status != model.EventStatusPublished {
        return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
    }
    if !ev.StartsAt.After(time.Now().UTC()) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
    }

    tx, err := h.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    defer func() { _ = tx.Rollback() }()

    tier, err := h.Events.TicketTypeForUpdateTx(ctx, tx, req.EventID, req.TicketType)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if tier.Quantity-tier.Sold < req.Quantity {
        return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrSoldOut.Error()})
    }

    payRef := uuid.NewString()
    booking := &model.Booking{
        UserID:           userID,
        EventID:          req.EventID,
        TicketTypeName:   tier.Name,
        TicketPriceCents: tier.PriceCents,
        Quantity:         req.Quantity,
        TotalAmountCents: tier.PriceCents * req.Quantity,
        Status:           model.BookingStatusConfirmed,
        PaymentRef:       &payRef,
    }
    if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
    }
    if err := h.Events.AddSoldTx(ctx, tx, tier.ID, int(req.Quantity)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update availability failed"})
    }

    cred, err := h.Issuer.Issue(booking.ID, booking.EventID, booking.UserID, booking.CreatedAt)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue credential failed"})
    }
    if err := h.Bookings.SetCredentialTx(ctx, tx, booking.ID, cred.SecureToken, cred.QRCode); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save credential failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }

    booking.SecureToken = cred.SecureToken
    booking.QRCode = cred.QRCode
    return c.JSON(http.StatusCreated, toBookingResp(booking))
}

// Cancel marks a booking cancelled and returns its tickets to the
// tier. A booking that was already redeemed at the door stays
// redeemed; cancellation is refused at that point.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    tx, err := h.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
    }
    defer func() { _ = tx.Rollback() }()

    booking, err := h.Bookings.GetForUpdateTx(ctx, tx, bookingID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if booking.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
    }
    if booking.CheckedIn {
        return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
    }
    if booking.Status != model.BookingStatusConfirmed && booking.Status != model.BookingStatusPending {
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not cancellable"})
    }

    tier, err := h.Events.TicketTypeForUpdateTx(ctx, tx, booking.EventID, booking.TicketTypeName)
    if err != nil && err != sql.ErrNoRows {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if err := h.Bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingStatusCancelled); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    // The tier may have been deleted since purchase; the booking still
    // cancels, there is just nothing to return the tickets to.
    if err == nil {
        if err := h.Events.AddSoldTx(ctx, tx, tier.ID, -int(booking.Quantity)); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update availability failed"})
        }
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": bookingID, "status": model.BookingStatusCancelled})
}

// ListMine returns the holder's bookings with their QR codes.
func (h *BookingHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rows, err := h.Bookings.ListByUser(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": rows})
}

// Get returns one booking, including its QR code, to its holder.
func (h *BookingHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    booking, err := h.Bookings.GetByID(ctx, bookingID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if booking.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
    }
    return c.JSON(http.StatusOK, toBookingResp(booking))
}

// RegenerateQR mints a fresh secure token and QR code for a booking,
// invalidating any previously issued code. Useful when a holder fears
// their code leaked. Redeemed and cancelled bookings keep their last
// credential untouched.
func (h *BookingHandler) RegenerateQR(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    booking, err := h.Bookings.GetByID(ctx, bookingID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if booking.UserID != userID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
    }
    if booking.CheckedIn {
        return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
    }
    if booking.Status == model.BookingStatusCancelled || booking.Status == model.BookingStatusRefunded {
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is cancelled"})
    }

    cred, err := h.Issuer.Issue(booking.ID, booking.EventID, booking.UserID, time.Now())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue credential failed"})
    }
    if err := h.Bookings.SetCredential(ctx, booking.ID, cred.SecureToken, cred.QRCode); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save credential failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": booking.ID, "qr_code": cred.QRCode})
}
