package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestGetUserIDAcceptsClaimShapes(t *testing.T) {
    e := echo.New()
    cases := []struct {
        name string
        val  any
        want uint64
    }{
        {"float64 claim", float64(42), 42},
        {"uint64", uint64(7), 7},
        {"numeric string", "19", 19},
        {"int", 3, 3},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
            c.Set("user_id", tc.val)
            got, err := getUserID(c)
            require.NoError(t, err)
            assert.Equal(t, tc.want, got)
        })
    }
}

func TestGetUserIDRejectsMissingOrBogus(t *testing.T) {
    e := echo.New()
    for _, val := range []any{nil, "abc", struct{}{}} {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        if val != nil {
            c.Set("user_id", val)
        }
        _, err := getUserID(c)
        assert.Error(t, err)
    }
}

func TestHealth(t *testing.T) {
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)

    require.NoError(t, Health(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
