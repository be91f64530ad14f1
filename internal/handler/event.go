package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/gigpass/gigpass/internal/model"
    "github.com/gigpass/gigpass/internal/repository"
)

// EventHandler exposes organizer event management and the public
// event catalog.
type EventHandler struct {
    Events *repository.EventRepo
}

func NewEventHandler(events *repository.EventRepo) *EventHandler {
    if events == nil {
        panic("nil repository passed to NewEventHandler")
    }
    return &EventHandler{Events: events}
}

type ticketTypeReq struct {
    Name       string `json:"name"`
    PriceCents uint32 `json:"price_cents"`
    Quantity   uint32 `json:"quantity"`
}

type createEventReq struct {
    Title       string          `json:"title"`
    Description string          `json:"description"`
    Category    string          `json:"category"`
    Venue       string          `json:"venue"`
    StartsAt    string          `json:"starts_at"` // RFC 3339
    TicketTypes []ticketTypeReq `json:"ticket_types"`
}

type ticketTypeResp struct {
    ID         uint64 `json:"id"`
    Name       string `json:"name"`
    PriceCents uint32 `json:"price_cents"`
    Quantity   uint32 `json:"quantity"`
    Available  uint32 `json:"available"`
}

type eventResp struct {
    ID          uint64           `json:"id"`
    Title       string           `json:"title"`
    Description string           `json:"description"`
    Category    string           `json:"category"`
    Venue       string           `json:"venue"`
    StartsAt    time.Time        `json:"starts_at"`
    Status      string           `json:"status"`
    TicketTypes []ticketTypeResp `json:"ticket_types,omitempty"`
}

func toEventResp(ev *model.Event, tiers []model.TicketType) eventResp {
    resp := eventResp{
        ID:          ev.ID,
        Title:       ev.Title,
        Description: ev.Description,
        Category:    ev.Category,
        Venue:       ev.Venue,
        StartsAt:    ev.StartsAt,
        Status:      ev.Status,
    }
    for _, t := range tiers {
        avail := uint32(0)
        if t.Quantity > t.Sold {
            avail = t.Quantity - t.Sold
        }
        resp.TicketTypes = append(resp.TicketTypes, ticketTypeResp{
            ID: t.ID, Name: t.Name, PriceCents: t.PriceCents,
            Quantity: t.Quantity, Available: avail,
        })
    }
    return resp
}

// Create registers a new draft event with its price tiers. Only
// published events are bookable, so a fresh event is invisible until
// the organizer flips its status.
func (h *EventHandler) Create(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req createEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Title = strings.TrimSpace(req.Title)
    if req.Title == "" || len(req.TicketTypes) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and at least one ticket type required"})
    }
    startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
    }
    if !startsAt.After(time.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be in the future"})
    }

    seen := map[string]bool{}
    tiers := make([]model.TicketType, 0, len(req.TicketTypes))
    for _, t := range req.TicketTypes {
        name := strings.TrimSpace(t.Name)
        if name == "" || t.Quantity == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket types need a name and a positive quantity"})
        }
        if seen[strings.ToLower(name)] {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate ticket type name: " + name})
        }
        seen[strings.ToLower(name)] = true
        tiers = append(tiers, model.TicketType{Name: name, PriceCents: t.PriceCents, Quantity: t.Quantity})
    }

    ev := &model.Event{
        OrganizerID: organizerID,
        Title:       req.Title,
        Description: strings.TrimSpace(req.Description),
        Category:    strings.ToLower(strings.TrimSpace(req.Category)),
        Venue:       strings.TrimSpace(req.Venue),
        StartsAt:    startsAt.UTC(),
        Status:      model.EventStatusDraft,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Events.Create(ctx, ev, tiers); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
    }
    tiersOut, err := h.Events.TicketTypes(ctx, ev.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket types failed"})
    }
    return c.JSON(http.StatusCreated, toEventResp(ev, tiersOut))
}

// ListMine returns all events owned by the authenticated organizer,
// drafts included.
func (h *EventHandler) ListMine(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    events, err := h.Events.ListByOrganizer(ctx, organizerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]eventResp, 0, len(events))
    for i := range events {
        out = append(out, toEventResp(&events[i], nil))
    }
    return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// UpdateStatus transitions an event between draft, published,
// cancelled and completed. Only the owning organizer may do this.
func (h *EventHandler) UpdateStatus(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }

    var req struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    status := strings.ToLower(strings.TrimSpace(req.Status))
    switch status {
    case model.EventStatusDraft, model.EventStatusPublished, model.EventStatusCancelled, model.EventStatusCompleted:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Events.UpdateStatus(ctx, eventID, organizerID, status); err != nil {
        switch err {
        case repository.ErrEventNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case repository.ErrForbidden:
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"id": eventID, "status": status})
}

// Get returns one published event with its tiers. Unpublished events
// are indistinguishable from missing ones for the public catalog.
func (h *EventHandler) Get(c echo.Context) error {
    eventID, err := paramID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ev, err := h.Events.GetByID(ctx, eventID)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if ev.Status != model.EventStatusPublished {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    tiers, err := h.Events.TicketTypes(ctx, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket types failed"})
    }
    return c.JSON(http.StatusOK, toEventResp(ev, tiers))
}

// Browse lists published upcoming events with optional filters and
// pagination. Results of this endpoint are cached by the Redis
// response cache when it is enabled.
func (h *EventHandler) Browse(c echo.Context) error {
    q := repository.EventSearchQuery{
        Title:      strings.TrimSpace(c.QueryParam("title")),
        Category:   strings.TrimSpace(c.QueryParam("category")),
        Venue:      strings.TrimSpace(c.QueryParam("venue")),
        TimeFilter: strings.TrimSpace(c.QueryParam("time")),
        Page:       1,
        PageSize:   20,
    }
    if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
        q.Page = n
    }
    if n, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && n > 0 && n <= 100 {
        q.PageSize = n
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rows, total, err := h.Events.SearchUpcoming(ctx, q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "events":    rows,
        "total":     total,
        "page":      q.Page,
        "page_size": q.PageSize,
    })
}
