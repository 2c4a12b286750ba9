package router

import (
    "github.com/labstack/echo/v4"

    "github.com/volunteerapp/program-server/internal/handler"
    "github.com/volunteerapp/program-server/internal/middleware"
)

// RegisterAdmin registers the authoring and management surface.  All
// routes require a valid access token with the ADMIN role: program
// and item authoring, the role catalog, sharing controls, participant
// listings and the live presence feed.
func RegisterAdmin(e *echo.Echo, pr *handler.ProgramHandler, it *handler.ItemHandler,
    sh *handler.ShareHandler, pa *handler.ParticipantHandler, fe *handler.FeedHandler,
    jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole("ADMIN"))

    // Program lifecycle.
    g.GET("/programs", pr.List)
    g.POST("/programs", pr.Create)
    g.GET("/programs/today", pr.TodayActive)
    g.GET("/programs/:id", pr.Get)
    g.PUT("/programs/:id", pr.Update)
    g.DELETE("/programs/:id", pr.Delete)
    g.POST("/programs/:id/activate", pr.Activate)
    g.POST("/programs/:id/complete", pr.Complete)

    // Run-sheet items.  Single-item routes address items directly;
    // bulk operations go through the owning program.
    g.GET("/programs/:id/items", it.List)
    g.POST("/programs/:id/items", it.Create)
    g.PUT("/programs/:id/items/reorder", it.Reorder)
    g.GET("/programs/:id/items/suggest-time", it.SuggestTime)
    g.PUT("/items/:id", it.Update)
    g.DELETE("/items/:id", it.Delete)

    // Sharing controls.
    g.GET("/programs/:id/share", sh.Link)
    g.POST("/programs/:id/share/regenerate", sh.Regenerate)
    g.PUT("/programs/:id/share/access", sh.SetAccess)

    // Participants: full history, the currently active set and the
    // WebSocket presence feed.
    g.GET("/programs/:id/participants", pa.ListByProgram)
    g.GET("/programs/:id/participants/active", pa.ListActive)
    g.GET("/programs/:id/participants/feed", fe.Subscribe)

    // Role catalog management.  The public GET /v1/roles shows only
    // active entries; admins list the full catalog here.
    g.GET("/roles/all", pa.RolesAll)
    g.POST("/roles", pa.RoleCreate)
    g.PUT("/roles/:id", pa.RoleUpdate)
    g.DELETE("/roles/:id", pa.RoleDelete)
}

// RegisterVolunteer registers routes available to any authenticated
// account regardless of role.
func RegisterVolunteer(e *echo.Echo, pa *handler.ParticipantHandler, jwtSecret string) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.GET("/participations", pa.History)
}
