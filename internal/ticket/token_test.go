package ticket

import (
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewIssuerRejectsEmptySecret(t *testing.T) {
    _, err := NewIssuer("")
    assert.ErrorIs(t, err, ErrNoSecret)
}

func TestTokenShape(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    tok := iss.Token(1, 2, 3, time.Unix(1700000000, 0))
    assert.Len(t, tok, 16)
    assert.Regexp(t, "^[0-9a-f]{16}$", tok)
}

func TestTokenStableForOneIssuance(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    at := time.Unix(1700000000, 42)
    assert.Equal(t, iss.Token(7, 8, 9, at), iss.Token(7, 8, 9, at))
}

func TestTokenUniquePerBooking(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    at := time.Unix(1700000000, 0)
    seen := make(map[string]uint64)
    for id := uint64(1); id <= 500; id++ {
        tok := iss.Token(id, 1, 1, at)
        if prev, dup := seen[tok]; dup {
            t.Fatalf("token collision between bookings %d and %d", prev, id)
        }
        seen[tok] = id
    }
}

func TestReissueProducesFreshToken(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    first := iss.Token(5, 6, 7, time.Unix(1700000000, 0))
    second := iss.Token(5, 6, 7, time.Unix(1700000000, 1))
    assert.NotEqual(t, first, second)
}

func TestTokenDependsOnSecret(t *testing.T) {
    a, err := NewIssuer("secret-a")
    require.NoError(t, err)
    b, err := NewIssuer("secret-b")
    require.NoError(t, err)

    at := time.Unix(1700000000, 0)
    assert.NotEqual(t, a.Token(1, 2, 3, at), b.Token(1, 2, 3, at))
}

func TestIssueReturnsTokenAndCode(t *testing.T) {
    iss, err := NewIssuer("unit-test-secret")
    require.NoError(t, err)

    cred, err := iss.Issue(10, 20, 30, time.Now())
    require.NoError(t, err)
    assert.Len(t, cred.SecureToken, 16)
    assert.True(t, strings.HasPrefix(cred.QRCode, "data:image/png;base64,"))
}
