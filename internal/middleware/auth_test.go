package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/gigpass/gigpass/internal/utils"
)

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    h := mw(func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
    })
    require.NoError(t, h(c))
    return rec
}

func TestJWTAuthAcceptsIssuedToken(t *testing.T) {
    const secret = "test-secret"
    tok, err := utils.NewAccessToken(secret, 42, "ORGANIZER", 5)
    require.NoError(t, err)

    rec := doRequest(t, JWTAuth(secret), "Bearer "+tok.Token)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"role":"ORGANIZER"`)
}

func TestJWTAuthRejectsMissingAndGarbageTokens(t *testing.T) {
    mw := JWTAuth("test-secret")

    rec := doRequest(t, mw, "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = doRequest(t, mw, "Bearer not-a-jwt")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken("secret-a", 7, "ATTENDEE", 5)
    require.NoError(t, err)

    rec := doRequest(t, JWTAuth("secret-b"), "Bearer "+tok.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    mw := RequireRole("ORGANIZER", "ADMIN")
    e := echo.New()

    run := func(role any) int {
        req := httptest.NewRequest(http.MethodGet, "/", nil)
        rec := httptest.NewRecorder()
        c := e.NewContext(req, rec)
        if role != nil {
            c.Set("role", role)
        }
        h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
        require.NoError(t, h(c))
        return rec.Code
    }

    assert.Equal(t, http.StatusOK, run("ORGANIZER"))
    assert.Equal(t, http.StatusOK, run("ADMIN"))
    assert.Equal(t, http.StatusForbidden, run("ATTENDEE"))
    assert.Equal(t, http.StatusForbidden, run(nil))
    assert.Equal(t, http.StatusForbidden, run(123)) // non-string claim
}
