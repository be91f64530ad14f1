package ticket

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func storedBooking() BookingRecord {
    return BookingRecord{
        ID:          101,
        EventID:     202,
        HolderID:    303,
        Status:      "confirmed",
        SecureToken: "a1b2c3d4e5f60718",
        EventStarts: time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC),
    }
}

func matchingPayload() Payload {
    return Payload{BookingID: 101, EventID: 202, HolderID: 303, Token: "a1b2c3d4e5f60718"}
}

func TestVerifyAccepts(t *testing.T) {
    res := Verify(matchingPayload(), storedBooking())
    assert.True(t, res.Valid)
    assert.Empty(t, res.Errors)
}

func TestVerifyReportsEachMismatch(t *testing.T) {
    cases := []struct {
        name   string
        mutate func(*Payload)
        reason string
    }{
        {"booking", func(p *Payload) { p.BookingID = 999 }, ReasonBookingMismatch},
        {"event", func(p *Payload) { p.EventID = 999 }, ReasonEventMismatch},
        {"holder", func(p *Payload) { p.HolderID = 999 }, ReasonHolderMismatch},
        {"token", func(p *Payload) { p.Token = "ffffffffffffffff" }, ReasonTokenMismatch},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            p := matchingPayload()
            tc.mutate(&p)
            res := Verify(p, storedBooking())
            assert.False(t, res.Valid)
            assert.Equal(t, []string{tc.reason}, res.Errors)
        })
    }
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
    p := matchingPayload()
    // flip one nibble of the token
    raw := []byte(p.Token)
    if raw[0] == 'a' {
        raw[0] = 'b'
    } else {
        raw[0] = 'a'
    }
    p.Token = string(raw)

    res := Verify(p, storedBooking())
    assert.False(t, res.Valid)
    assert.Contains(t, res.Errors, ReasonTokenMismatch)
}

func TestVerifyCollectsAllFailures(t *testing.T) {
    p := Payload{BookingID: 1, EventID: 2, HolderID: 3, Token: "nope"}
    res := Verify(p, storedBooking())
    assert.False(t, res.Valid)
    assert.Len(t, res.Errors, 4)
}

func TestVerifyIsIdempotent(t *testing.T) {
    p := matchingPayload()
    b := storedBooking()
    first := Verify(p, b)
    second := Verify(p, b)
    assert.Equal(t, first, second)
}

func TestReissueInvalidatesOldCode(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    b := storedBooking()
    old := iss.Token(b.ID, b.EventID, b.HolderID, time.Unix(1700000000, 0))
    b.SecureToken = old

    p := Payload{BookingID: b.ID, EventID: b.EventID, HolderID: b.HolderID, Token: old}
    require.True(t, Verify(p, b).Valid)

    // reissue: the stored token changes, the presented one does not
    b.SecureToken = iss.Token(b.ID, b.EventID, b.HolderID, time.Unix(1700000000, 1))
    res := Verify(p, b)
    assert.False(t, res.Valid)
    assert.Equal(t, []string{ReasonTokenMismatch}, res.Errors)

    // a freshly rendered payload with the new token verifies again
    p.Token = b.SecureToken
    assert.True(t, Verify(p, b).Valid)
}
