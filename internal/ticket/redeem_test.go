package ticket

import (
    "context"
    "encoding/json"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/gigpass/gigpass/internal/model"
)

// memStore is an in-memory Store with the same conditional-write
// guarantee the SQL repository provides.
type memStore struct {
    mu       sync.Mutex
    bookings map[uint64]BookingRecord
}

func newMemStore(records ...BookingRecord) *memStore {
    s := &memStore{bookings: make(map[uint64]BookingRecord)}
    for _, b := range records {
        s.bookings[b.ID] = b
    }
    return s
}

func (s *memStore) Booking(_ context.Context, id uint64) (BookingRecord, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return BookingRecord{}, ErrBookingNotFound
    }
    return b, nil
}

func (s *memStore) MarkCheckedIn(_ context.Context, id uint64, at time.Time) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok || b.CheckedIn {
        return false, nil
    }
    b.CheckedIn = true
    b.CheckedInAt = &at
    s.bookings[id] = b
    return true, nil
}

var eventStart = time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)

func freshBooking() BookingRecord {
    return BookingRecord{
        ID:          101,
        EventID:     202,
        HolderID:    303,
        Status:      model.BookingStatusConfirmed,
        SecureToken: "a1b2c3d4e5f60718",
        EventStarts: eventStart,
    }
}

func coordinatorAt(store Store, now time.Time) *Coordinator {
    c := NewCoordinator(store)
    c.now = func() time.Time { return now }
    return c
}

func TestRedeemSuccess(t *testing.T) {
    store := newMemStore(freshBooking())
    c := coordinatorAt(store, eventStart)

    out, err := c.Redeem(context.Background(), 101)
    require.NoError(t, err)
    assert.Equal(t, OutcomeSuccess, out.Code)
    require.NotNil(t, out.Booking)
    assert.True(t, out.Booking.CheckedIn)
    require.NotNil(t, out.Booking.CheckedInAt)
    assert.Equal(t, eventStart, *out.Booking.CheckedInAt)
}

func TestRedeemUnknownBooking(t *testing.T) {
    c := coordinatorAt(newMemStore(), eventStart)
    _, err := c.Redeem(context.Background(), 404)
    assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRedeemCancelled(t *testing.T) {
    for _, status := range []string{model.BookingStatusCancelled, model.BookingStatusRefunded} {
        t.Run(status, func(t *testing.T) {
            b := freshBooking()
            b.Status = status
            store := newMemStore(b)
            c := coordinatorAt(store, eventStart)

            out, err := c.Redeem(context.Background(), b.ID)
            require.NoError(t, err)
            assert.Equal(t, OutcomeCancelled, out.Code)

            cur, err := store.Booking(context.Background(), b.ID)
            require.NoError(t, err)
            assert.False(t, cur.CheckedIn)
        })
    }
}

func TestRedeemCancelledWinsOverRedeemed(t *testing.T) {
    // a cancelled booking reports cancelled even if it was somehow
    // checked in before cancellation
    at := eventStart.Add(-time.Hour)
    b := freshBooking()
    b.Status = model.BookingStatusCancelled
    b.CheckedIn = true
    b.CheckedInAt = &at

    c := coordinatorAt(newMemStore(b), eventStart)
    out, err := c.Redeem(context.Background(), b.ID)
    require.NoError(t, err)
    assert.Equal(t, OutcomeCancelled, out.Code)
}

func TestRedeemWindow(t *testing.T) {
    cases := []struct {
        name string
        now  time.Time
        want OutcomeCode
    }{
        {"48h before", eventStart.Add(-48 * time.Hour), OutcomeTooEarly},
        {"just outside early edge", eventStart.Add(-24*time.Hour - time.Second), OutcomeTooEarly},
        {"exactly on early edge", eventStart.Add(-24 * time.Hour), OutcomeSuccess},
        {"exactly at event start", eventStart, OutcomeSuccess},
        {"exactly on late edge", eventStart.Add(24 * time.Hour), OutcomeSuccess},
        {"just outside late edge", eventStart.Add(24*time.Hour + time.Second), OutcomeTooLate},
        {"a week later", eventStart.Add(7 * 24 * time.Hour), OutcomeTooLate},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            store := newMemStore(freshBooking())
            c := coordinatorAt(store, tc.now)

            out, err := c.Redeem(context.Background(), 101)
            require.NoError(t, err)
            assert.Equal(t, tc.want, out.Code)
            if tc.want == OutcomeTooEarly {
                assert.Equal(t, eventStart, out.EventStarts)
            }
        })
    }
}

func TestRedeemTwiceReportsOriginalTimestamp(t *testing.T) {
    store := newMemStore(freshBooking())
    first := coordinatorAt(store, eventStart)

    out, err := first.Redeem(context.Background(), 101)
    require.NoError(t, err)
    require.Equal(t, OutcomeSuccess, out.Code)

    // a later attempt reports the first check-in time, not its own
    second := coordinatorAt(store, eventStart.Add(time.Hour))
    out, err = second.Redeem(context.Background(), 101)
    require.NoError(t, err)
    assert.Equal(t, OutcomeAlreadyRedeemed, out.Code)
    assert.Equal(t, eventStart, out.CheckedInAt)
}

func TestRedeemConcurrentSingleWinner(t *testing.T) {
    const attempts = 32

    store := newMemStore(freshBooking())
    c := coordinatorAt(store, eventStart)

    outcomes := make(chan OutcomeCode, attempts)
    var wg sync.WaitGroup
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            out, err := c.Redeem(context.Background(), 101)
            if err != nil {
                t.Error(err)
                return
            }
            outcomes <- out.Code
        }()
    }
    wg.Wait()
    close(outcomes)

    var wins, repeats int
    for code := range outcomes {
        switch code {
        case OutcomeSuccess:
            wins++
        case OutcomeAlreadyRedeemed:
            repeats++
        default:
            t.Fatalf("unexpected outcome %q", code)
        }
    }
    assert.Equal(t, 1, wins)
    assert.Equal(t, attempts-1, repeats)
}

func TestEndToEndScanFlow(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    b := freshBooking()
    cred, err := iss.Issue(b.ID, b.EventID, b.HolderID, time.Unix(1700000000, 0))
    require.NoError(t, err)
    b.SecureToken = cred.SecureToken

    store := newMemStore(b)

    // the scanning client decodes the QR content back into a payload
    raw, err := json.Marshal(Payload{BookingID: b.ID, EventID: b.EventID, HolderID: b.HolderID, Token: cred.SecureToken})
    require.NoError(t, err)
    p, err := ParsePayload(raw)
    require.NoError(t, err)

    stored, err := store.Booking(context.Background(), p.BookingID)
    require.NoError(t, err)
    require.True(t, Verify(p, stored).Valid)

    c := coordinatorAt(store, eventStart)
    out, err := c.Redeem(context.Background(), p.BookingID)
    require.NoError(t, err)
    require.Equal(t, OutcomeSuccess, out.Code)

    out, err = c.Redeem(context.Background(), p.BookingID)
    require.NoError(t, err)
    assert.Equal(t, OutcomeAlreadyRedeemed, out.Code)
    assert.Equal(t, eventStart, out.CheckedInAt)
}
