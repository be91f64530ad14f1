package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/gigpass/gigpass/internal/config"
    "github.com/gigpass/gigpass/internal/handler"
    "github.com/gigpass/gigpass/internal/middleware"
    "github.com/gigpass/gigpass/internal/model"
)

// Deps collects everything the route table needs. Redis is optional;
// when it is nil the rate limiter and response cache become no-ops.
type Deps struct {
    Cfg      config.Config
    Auth     *handler.AuthHandler
    Events   *handler.EventHandler
    Bookings *handler.BookingHandler
    Checkin  *handler.CheckinHandler
    Redis    *redis.Client
}

// Register wires every route of the API onto the Echo instance.
//
//	/healthz                                 liveness probe
//	/v1/auth/*                               session management
//	/v1/events*                              public catalog
//	/v1/me, /v1/bookings*                    authenticated holders
//	/v1/organizer/*                          organizer event management
//	/v1/checkin*, /v1/bookings/:id/check-in  door staff (organizer/admin)
//	/v1/admin/*                              admin reporting
func Register(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)

    rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis)

    // Session management; logout works without the JWT middleware so
    // an expired access token can still end its session.
    auth := e.Group("/v1/auth", rl)
    auth.POST("/register", d.Auth.Register)
    auth.POST("/login", d.Auth.Login)
    auth.POST("/refresh", d.Auth.Refresh)
    auth.POST("/refresh-access", d.Auth.RefreshAccess)
    auth.POST("/logout", d.Auth.Logout)

    // Public catalog, cached.
    pub := e.Group("/v1/events", rl, cache)
    pub.GET("", d.Events.Browse)
    pub.GET("/:id", d.Events.Get)

    jwtAuth := middleware.JWTAuth(d.Cfg.JWTSecret)

    // Any authenticated user.
    me := e.Group("/v1", jwtAuth, rl)
    me.GET("/me", d.Auth.Me)

    // Holder endpoints.
    bookings := e.Group("/v1/bookings", jwtAuth, rl)
    bookings.POST("", d.Bookings.Create)
    bookings.GET("", d.Bookings.ListMine)
    bookings.GET("/:id", d.Bookings.Get)
    bookings.POST("/:id/cancel", d.Bookings.Cancel)
    bookings.POST("/:id/qr", d.Bookings.RegenerateQR)

    // Organizer event management.
    org := e.Group("/v1/organizer", jwtAuth, middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin), rl)
    org.POST("/events", d.Events.Create)
    org.GET("/events", d.Events.ListMine)
    org.PATCH("/events/:id/status", d.Events.UpdateStatus)
    org.GET("/events/:id/bookings", d.Checkin.Attendees)
    org.GET("/events/:id/checkin/search", d.Checkin.Search)
    org.GET("/events/:id/checkin/stats", d.Checkin.Stats)

    // Door-staff redemption. Per-booking authorization (is this the
    // event's organizer, or an admin) happens in the handlers because
    // it depends on the booking being redeemed.
    door := e.Group("/v1/checkin", jwtAuth, middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin), rl)
    door.POST("/verify", d.Checkin.Verify)
    door.POST("", d.Checkin.CheckIn)
    e.PATCH("/v1/bookings/:id/check-in", d.Checkin.CheckInByID,
        jwtAuth, middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin), rl)

    // Admin reporting.
    admin := e.Group("/v1/admin", jwtAuth, middleware.RequireRole(model.RoleAdmin), rl)
    admin.GET("/stats", d.Checkin.AdminStats)
}
