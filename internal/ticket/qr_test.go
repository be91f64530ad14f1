package ticket

import (
    "encoding/base64"
    "encoding/json"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParsePayloadRoundTrip(t *testing.T) {
    in := Payload{BookingID: 11, EventID: 22, HolderID: 33, Token: "a1b2c3d4e5f60718"}
    raw, err := json.Marshal(in)
    require.NoError(t, err)

    out, err := ParsePayload(raw)
    require.NoError(t, err)
    assert.Equal(t, in, out)
}

func TestParsePayloadRejectsGarbage(t *testing.T) {
    _, err := ParsePayload([]byte("not json at all"))
    assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParsePayloadRejectsMissingFields(t *testing.T) {
    cases := map[string]string{
        "missing booking": `{"eid":2,"uid":3,"tok":"abc"}`,
        "missing event":   `{"bid":1,"uid":3,"tok":"abc"}`,
        "missing holder":  `{"bid":1,"eid":2,"tok":"abc"}`,
        "missing token":   `{"bid":1,"eid":2,"uid":3}`,
        "empty object":    `{}`,
    }
    for name, raw := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := ParsePayload([]byte(raw))
            assert.ErrorIs(t, err, ErrMalformedPayload)
        })
    }
}

func TestPayloadUsesCompactKeysOnly(t *testing.T) {
    raw, err := json.Marshal(Payload{BookingID: 1, EventID: 2, HolderID: 3, Token: "t"})
    require.NoError(t, err)

    var fields map[string]any
    require.NoError(t, json.Unmarshal(raw, &fields))
    assert.Len(t, fields, 4)
    for _, k := range []string{"bid", "eid", "uid", "tok"} {
        assert.Contains(t, fields, k)
    }
}

func TestEncodeQRProducesPNGDataURL(t *testing.T) {
    url, err := EncodeQR(Payload{BookingID: 1, EventID: 2, HolderID: 3, Token: "a1b2c3d4e5f60718"})
    require.NoError(t, err)

    const prefix = "data:image/png;base64,"
    require.True(t, strings.HasPrefix(url, prefix))

    png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
    require.NoError(t, err)
    require.Greater(t, len(png), 8)
    assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
