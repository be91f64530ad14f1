package ticket

import (
    "encoding/base64"
    "encoding/json"
    "errors"
    "fmt"

    qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the pixel width/height of the rendered QR image.
const qrSize = 300

// Payload is the compact verification payload embedded in the QR code
// and presented at the door. It carries only opaque identifiers plus
// the token; no personal data, amounts or event details, so a leaked
// code discloses nothing useful without the server-side secret.
type Payload struct {
    BookingID uint64 `json:"bid"`
    EventID   uint64 `json:"eid"`
    HolderID  uint64 `json:"uid"`
    Token     string `json:"tok"`
}

// ErrMalformedPayload is returned when a scanned payload cannot be
// decoded or is missing required fields. It is distinct from the
// per-field mismatch reasons produced by Verify.
var ErrMalformedPayload = errors.New("ticket: malformed payload")

// Validate checks that all four required fields are present. A zero
// identifier or empty token can never match a stored credential, so
// such payloads are rejected before any comparison runs.
func (p Payload) Validate() error {
    if p.BookingID == 0 || p.EventID == 0 || p.HolderID == 0 || p.Token == "" {
        return ErrMalformedPayload
    }
    return nil
}

// ParsePayload decodes the serialized payload text captured by a
// scanning client back into a Payload, rejecting malformed input
// early rather than failing inside comparison logic.
func ParsePayload(raw []byte) (Payload, error) {
    var p Payload
    if err := json.Unmarshal(raw, &p); err != nil {
        return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
    }
    if err := p.Validate(); err != nil {
        return Payload{}, err
    }
    return p, nil
}

// EncodeQR serializes the payload and renders it as a 300px PNG QR
// code with error correction level M, returned as a base64 data URL
// ready for an <img> tag.
func EncodeQR(p Payload) (string, error) {
    body, err := json.Marshal(p)
    if err != nil {
        return "", err
    }
    png, err := qrcode.Encode(string(body), qrcode.Medium, qrSize)
    if err != nil {
        return "", err
    }
    return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
