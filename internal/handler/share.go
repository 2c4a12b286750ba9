package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/repository"
	"github.com/volunteerapp/program-server/internal/share"
)

// ShareHandler serves the owner-facing sharing controls: fetching the
// share bundle, rotating the join code and toggling public access.
type ShareHandler struct {
	Resolver *share.Resolver
	Programs *repository.ProgramRepo
}

func NewShareHandler(r *share.Resolver, p *repository.ProgramRepo) *ShareHandler {
	return &ShareHandler{Resolver: r, Programs: p}
}

// Link returns the program's share bundle: code, token, deep link and
// the ready-to-send share message.
func (h *ShareHandler) Link(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	link, err := h.Resolver.Link(ctx, id, uid)
	if err != nil {
		return repoError(c, err)
	}
	p, err := h.Programs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"share":   link,
		"message": h.Resolver.ShareMessage(link, p.Title),
	})
}

// Regenerate rotates the join code.  The old code stops resolving
// immediately; previously shared deep links keep working because the
// token is unchanged.
func (h *ShareHandler) Regenerate(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	link, err := h.Resolver.Regenerate(ctx, id, uid)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"share": link})
}

// SetAccess toggles whether the program's code and token resolve.
// Disabling keeps the stored credentials dormant; re-enabling
// restores the very same code.
func (h *ShareHandler) SetAccess(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Resolver.SetPublicAccess(ctx, id, uid, req.Enabled); err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"enabled": req.Enabled})
}
