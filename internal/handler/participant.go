package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/model"
	"github.com/volunteerapp/program-server/internal/presence"
	"github.com/volunteerapp/program-server/internal/repository"
)

// ParticipantHandler serves the admin-facing participant listings and
// the role catalog.
type ParticipantHandler struct {
	Participants *repository.ParticipantRepo
	Roles        *repository.RoleRepo
	Tracker      *presence.Tracker
	Programs     OwnerVerifier
}

func NewParticipantHandler(p *repository.ParticipantRepo, r *repository.RoleRepo, t *presence.Tracker, o OwnerVerifier) *ParticipantHandler {
	return &ParticipantHandler{Participants: p, Roles: r, Tracker: t, Programs: o}
}

// participantListEntry is one row of an admin listing, annotated with
// whether the participant is currently inside the active window.
type participantListEntry struct {
	participantResp
	IsActive bool `json:"is_active"`
}

// ListByProgram returns every participant that ever joined a program.
// Each entry is annotated with current activity so the admin view can
// show "here now" against full attendance.
func (h *ParticipantHandler) ListByProgram(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	programID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Programs.GetByIDForOwner(ctx, programID, uid); err != nil {
		return repoError(c, err)
	}
	participants, err := h.Participants.ListByProgram(ctx, programID)
	if err != nil {
		return repoError(c, err)
	}
	now := time.Now().UTC()
	out := make([]participantListEntry, 0, len(participants))
	active := 0
	for i := range participants {
		p := &participants[i]
		entry := participantListEntry{
			participantResp: toParticipantResp(p),
			IsActive:        presence.IsActive(p.LastActive, now, h.Tracker.Window()),
		}
		if entry.IsActive {
			active++
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"participants": out,
		"active_count": active,
	})
}

// ListActive returns only the participants currently inside the
// active window.
func (h *ParticipantHandler) ListActive(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	programID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Programs.GetByIDForOwner(ctx, programID, uid); err != nil {
		return repoError(c, err)
	}
	participants, err := h.Tracker.Active(ctx, programID)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]participantResp, 0, len(participants))
	for i := range participants {
		out = append(out, toParticipantResp(&participants[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"participants": out,
		"active_count": len(out),
	})
}

// History returns the authenticated user's own participation history,
// newest first.
func (h *ParticipantHandler) History(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	participants, err := h.Participants.HistoryByUser(ctx, uid)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]participantResp, 0, len(participants))
	for i := range participants {
		out = append(out, toParticipantResp(&participants[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": out})
}

// ----- role catalog -----

type roleView struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	DisplayOrder uint32  `json:"display_order"`
	IsActive     bool    `json:"is_active"`
}

func toRoleView(r model.ParticipantRole) roleView {
	return roleView{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		DisplayOrder: r.DisplayOrder,
		IsActive:     r.IsActive,
	}
}

// RolesPublic returns the selectable role labels shown on the join
// screen, in display order.
func (h *ParticipantHandler) RolesPublic(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.ListActive(ctx)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]roleView, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

// RolesAll returns the full catalog including inactive entries, for
// admin management.
func (h *ParticipantHandler) RolesAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.ListAll(ctx)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]roleView, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

type roleReq struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	DisplayOrder uint32  `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

// RoleCreate adds a catalog entry.
func (h *ParticipantHandler) RoleCreate(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role := &model.ParticipantRole{
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if err := h.Roles.Create(ctx, role); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
		}
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, toRoleView(*role))
}

// RoleUpdate rewrites a catalog entry.
func (h *ParticipantHandler) RoleUpdate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role := &model.ParticipantRole{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if err := h.Roles.Update(ctx, role); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
		}
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toRoleView(*role))
}

// RoleDelete removes a catalog entry.  Participant rows keep their
// free-text role label, so history is unaffected.
func (h *ParticipantHandler) RoleDelete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
