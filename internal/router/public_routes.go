package router

import (
    "github.com/labstack/echo/v4"

    "github.com/volunteerapp/program-server/internal/handler"
    "github.com/volunteerapp/program-server/internal/middleware"
)

// RegisterPublic registers the guest-facing join surface.  None of
// these routes require authentication; the join endpoint runs the
// optional JWT middleware so a signed-in volunteer's participant row
// gets linked to their account.
func RegisterPublic(e *echo.Echo, j *handler.JoinHandler, p *handler.ParticipantHandler,
    l *handler.LiveHandler, jwtSecret string) {
    // Share credential resolution: preview a program by typed code or
    // by the deep-link token before joining.
    e.GET("/v1/join/resolve", j.ResolveCode)
    e.GET("/v1/join/token/:token", j.ResolveToken)
    // Guest session resumption for returning devices.
    e.GET("/v1/join/session", j.Session)
    // Role labels offered on the join screen.
    e.GET("/v1/roles", p.RolesPublic)

    // Joining and liveness.  All three verify the caller against the
    // row's own credentials: the joining device id for guests, the
    // bearer account for signed-in volunteers.  No other auth exists
    // for guests, so the routes stay outside the JWT gate.
    optionalAuth := middleware.OptionalJWTAuth(jwtSecret)
    e.POST("/v1/join", j.Join, optionalAuth)
    e.POST("/v1/participants/:id/heartbeat", j.Heartbeat, optionalAuth)
    e.POST("/v1/participants/:id/leave", j.Leave, optionalAuth)

    // The participant live view: run-sheet plus the computed current
    // position and countdowns.
    e.GET("/v1/programs/:id/live", l.Live)
}
