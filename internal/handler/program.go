package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/model"
	"github.com/volunteerapp/program-server/internal/repository"
	"github.com/volunteerapp/program-server/internal/timeline"
)

// ProgramHandler serves run-sheet authoring: program CRUD, lifecycle
// transitions and the today-active lookup.
type ProgramHandler struct {
	Programs *repository.ProgramRepo
	Items    *repository.ItemRepo
}

func NewProgramHandler(p *repository.ProgramRepo, i *repository.ItemRepo) *ProgramHandler {
	return &ProgramHandler{Programs: p, Items: i}
}

// ----- DTOs -----

type itemReq struct {
	ID              uint64  `json:"id"`
	Time            string  `json:"time"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	PersonInCharge  *string `json:"person_in_charge"`
	DurationMinutes uint32  `json:"duration_minutes"`
	Order           uint32  `json:"order"`
}

type programReq struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Date        *string   `json:"date"`
	StartTime   *string   `json:"start_time"`
	EndTime     *string   `json:"end_time"`
	Recurrence  *string   `json:"recurrence"`
	IsTemplate  bool      `json:"is_template"`
	Items       []itemReq `json:"items"`
}

type itemView struct {
	ID              uint64  `json:"id"`
	ProgramID       uint64  `json:"program_id"`
	Time            string  `json:"time"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	PersonInCharge  *string `json:"person_in_charge,omitempty"`
	DurationMinutes uint32  `json:"duration_minutes"`
	Order           uint32  `json:"order"`
}

type programView struct {
	ID                  uint64     `json:"id"`
	OwnerID             uint64     `json:"owner_id"`
	Title               string     `json:"title"`
	Description         *string    `json:"description,omitempty"`
	Date                *string    `json:"date,omitempty"`
	StartTime           *string    `json:"start_time,omitempty"`
	EndTime             *string    `json:"end_time,omitempty"`
	Duration            string     `json:"duration,omitempty"`
	Status              string     `json:"status"`
	Recurrence          *string    `json:"recurrence,omitempty"`
	IsTemplate          bool       `json:"is_template"`
	ShareCode           string     `json:"share_code"`
	PublicAccessEnabled bool       `json:"public_access_enabled"`
	ActiveParticipants  uint32     `json:"active_participants_count"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Items               []itemView `json:"items,omitempty"`
}

func toItemView(it model.ProgramItem) itemView {
	return itemView{
		ID:              it.ID,
		ProgramID:       it.ProgramID,
		Time:            it.Time,
		Title:           it.Title,
		Description:     it.Description,
		PersonInCharge:  it.PersonInCharge,
		DurationMinutes: it.DurationMinutes,
		Order:           it.Order,
	}
}

func toProgramView(p *model.Program, items []model.ProgramItem) programView {
	v := programView{
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		Title:               p.Title,
		Description:         p.Description,
		Date:                p.Date,
		StartTime:           p.StartTime,
		EndTime:             p.EndTime,
		Status:              p.Status,
		Recurrence:          p.Recurrence,
		IsTemplate:          p.IsTemplate,
		ShareCode:           p.ShareCode,
		PublicAccessEnabled: p.PublicAccessEnabled,
		ActiveParticipants:  p.ActiveParticipants,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.StartTime != nil && p.EndTime != nil {
		if span, err := timeline.FormatSpan(*p.StartTime, *p.EndTime); err == nil {
			v.Duration = span
		}
	}
	for _, it := range items {
		v.Items = append(v.Items, toItemView(it))
	}
	return v
}

func toItems(programID uint64, reqs []itemReq) []model.ProgramItem {
	out := make([]model.ProgramItem, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, model.ProgramItem{
			ID:              r.ID,
			ProgramID:       programID,
			Time:            r.Time,
			Title:           r.Title,
			Description:     r.Description,
			PersonInCharge:  r.PersonInCharge,
			DurationMinutes: r.DurationMinutes,
			Order:           r.Order,
		})
	}
	return out
}

// repoError maps repository failures onto HTTP responses.
func repoError(c echo.Context, err error) error {
	switch err {
	case sql.ErrNoRows:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// validateItemTimes rejects run-sheet items whose start time is not a
// valid "HH:MM" time of day.
func validateItemTimes(items []itemReq) (string, bool) {
	for _, it := range items {
		if _, err := timeline.ParseClock(it.Time); err != nil {
			return it.Time, false
		}
	}
	return "", true
}

// List returns the caller's programs, optionally filtered by status.
func (h *ProgramHandler) List(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	programs, err := h.Programs.ListByOwner(ctx, uid, c.QueryParam("status"))
	if err != nil {
		return repoError(c, err)
	}
	out := make([]programView, 0, len(programs))
	for i := range programs {
		out = append(out, toProgramView(&programs[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"programs": out})
}

// Create inserts a program, optionally together with its run-sheet
// items in one transaction.
func (h *ProgramHandler) Create(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req programReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if bad, ok := validateItemTimes(req.Items); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item time: " + bad})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := &model.Program{
		OwnerID:     uid,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Recurrence:  req.Recurrence,
		IsTemplate:  req.IsTemplate,
	}
	var err error
	if len(req.Items) > 0 {
		err = h.Programs.CreateWithItems(ctx, p, toItems(0, req.Items))
	} else {
		err = h.Programs.Create(ctx, p)
	}
	if err != nil {
		return repoError(c, err)
	}
	items, err := h.Items.ListByProgram(ctx, p.ID)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, toProgramView(p, items))
}

// Get returns one program with its items.  Owners see their drafts
// and templates; other callers go through the public join surface.
func (h *ProgramHandler) Get(c echo.Context) error {
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

	p, err := h.Programs.GetByIDForOwner(ctx, id, uid)
	if err != nil {
		return repoError(c, err)
	}
	items, err := h.Items.ListByProgram(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toProgramView(p, items))
}

// Update rewrites a program's editable fields.  When the body carries
// an items array the stored run-sheet is replaced with it in the same
// transaction; a body without items leaves the run-sheet untouched.
func (h *ProgramHandler) Update(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req programReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if bad, ok := validateItemTimes(req.Items); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item time: " + bad})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stored, err := h.Programs.GetByIDForOwner(ctx, id, uid)
	if err != nil {
		return repoError(c, err)
	}
	p := &model.Program{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      stored.Status,
		Recurrence:  req.Recurrence,
		IsTemplate:  req.IsTemplate,
	}
	if req.Items != nil {
		err = h.Programs.UpdateWithItems(ctx, p, uid, toItems(id, req.Items))
	} else {
		err = h.Programs.Update(ctx, p, uid)
	}
	if err != nil {
		return repoError(c, err)
	}
	items, err := h.Items.ListByProgram(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toProgramView(p, items))
}

// Delete removes a program with its items and participant history.
func (h *ProgramHandler) Delete(c echo.Context) error {
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

	if err := h.Programs.Delete(ctx, id, uid); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Activate makes the program live.  Any other active program on the
// same date is demoted back to draft so at most one program per date
// runs live.
func (h *ProgramHandler) Activate(c echo.Context) error {
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

	p, err := h.Programs.Activate(ctx, id, uid)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "templates cannot be activated"})
		}
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toProgramView(p, nil))
}

// Complete marks a live program as finished.
func (h *ProgramHandler) Complete(c echo.Context) error {
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

	p, err := h.Programs.SetStatus(ctx, id, uid, model.StatusCompleted)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toProgramView(p, nil))
}

// TodayActive returns the program running live on the given date
// (default: today, server time).  404 when none is live.
func (h *ProgramHandler) TodayActive(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Programs.GetTodayActive(ctx, date)
	if err != nil {
		return repoError(c, err)
	}
	items, err := h.Items.ListByProgram(ctx, p.ID)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toProgramView(p, items))
}
