package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/model"
	"github.com/volunteerapp/program-server/internal/repository"
	"github.com/volunteerapp/program-server/internal/timeline"
)

// ItemHandler serves single-item authoring on a program's run-sheet.
type ItemHandler struct {
	Items    *repository.ItemRepo
	Programs OwnerVerifier
}

func NewItemHandler(i *repository.ItemRepo, o OwnerVerifier) *ItemHandler {
	return &ItemHandler{Items: i, Programs: o}
}

// List returns a program's items in playback order.
func (h *ItemHandler) List(c echo.Context) error {
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
	items, err := h.Items.ListByProgram(ctx, programID)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, toItemView(it))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Create appends one item to a program's run-sheet.
func (h *ItemHandler) Create(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	programID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if _, err := timeline.ParseClock(req.Time); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item time: " + req.Time})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it := &model.ProgramItem{
		ProgramID:       programID,
		Time:            req.Time,
		Title:           req.Title,
		Description:     req.Description,
		PersonInCharge:  req.PersonInCharge,
		DurationMinutes: req.DurationMinutes,
		Order:           req.Order,
	}
	if err := h.Items.Create(ctx, it, uid); err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, toItemView(*it))
}

// Update rewrites one item.
func (h *ItemHandler) Update(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if _, err := timeline.ParseClock(req.Time); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item time: " + req.Time})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it := &model.ProgramItem{
		ID:              id,
		Time:            req.Time,
		Title:           req.Title,
		Description:     req.Description,
		PersonInCharge:  req.PersonInCharge,
		DurationMinutes: req.DurationMinutes,
		Order:           req.Order,
	}
	if err := h.Items.Update(ctx, it, uid); err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toItemView(*it))
}

// Delete removes one item.
func (h *ItemHandler) Delete(c echo.Context) error {
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

	if err := h.Items.Delete(ctx, id, uid); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder applies a drag-and-drop reorder: the body lists item IDs
// with their new positions and everything lands in one transaction.
func (h *ItemHandler) Reorder(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	programID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Items []repository.OrderUpdate `json:"items"`
	}
	if err := c.Bind(&req); err != nil || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Reorder(ctx, programID, uid, req.Items); err != nil {
		return repoError(c, err)
	}
	items, err := h.Items.ListByProgram(ctx, programID)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, toItemView(it))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SuggestTime proposes a start time for the next appended item: the
// last item's start plus its duration.  Empty run-sheets get no
// suggestion.
func (h *ItemHandler) SuggestTime(c echo.Context) error {
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
	items, err := h.Items.ListByProgram(ctx, programID)
	if err != nil {
		return repoError(c, err)
	}
	if len(items) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"suggested_time": nil})
	}
	last := items[len(items)-1]
	suggested, err := timeline.SuggestNextStart(last.Time, int(last.DurationMinutes))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"suggested_time": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"suggested_time": suggested})
}
