package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/gigpass/gigpass/internal/config"
    "github.com/gigpass/gigpass/internal/database"
    "github.com/gigpass/gigpass/internal/handler"
    "github.com/gigpass/gigpass/internal/queue"
    "github.com/gigpass/gigpass/internal/repository"
    "github.com/gigpass/gigpass/internal/router"
    "github.com/gigpass/gigpass/internal/ticket"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // A missing ticket secret is a startup error: every credential
    // would be forgeable, so refusing to boot beats a silent default.
    issuer, err := ticket.NewIssuer(cfg.TicketSecret)
    if err != nil {
        log.Fatalf("ticket issuer: %v", err)
    }

    rdb := config.NewRedisClient() // nil when Redis is not configured

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    events := repository.NewEventRepo(db)
    bookings := repository.NewBookingRepo(db)
    coord := ticket.NewCoordinator(bookings)

    e := echo.New()
    e.HideBanner = true

    router.Register(e, router.Deps{
        Cfg:      cfg,
        Auth:     handler.NewAuthHandler(cfg, users, tokens),
        Events:   handler.NewEventHandler(events),
        Bookings: handler.NewBookingHandler(db, bookings, events, issuer),
        Checkin:  handler.NewCheckinHandler(bookings, events, coord),
        Redis:    rdb,
    })

    // Background consumer for checked-in events; it reconnects on its
    // own, so a broker outage never takes the API down.
    go func() {
        if err := queue.StartCheckinConsumer(); err != nil {
            log.Printf("checkin consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
