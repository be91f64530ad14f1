package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health responds with a static payload so load balancers and uptime
// checks can confirm the service is alive.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
