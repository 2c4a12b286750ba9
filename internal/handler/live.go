package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/config"
	"github.com/volunteerapp/program-server/internal/repository"
	"github.com/volunteerapp/program-server/internal/timeline"
)

// LiveHandler serves the participant live view: the run-sheet with
// the computed current position and per-item countdowns.  The view is
// a pure function of the stored items and the server clock, so
// clients poll it (or re-render locally) about once a minute.
type LiveHandler struct {
	Cfg      config.Config
	Programs *repository.ProgramRepo
	Items    *repository.ItemRepo
}

func NewLiveHandler(cfg config.Config, p *repository.ProgramRepo, i *repository.ItemRepo) *LiveHandler {
	return &LiveHandler{Cfg: cfg, Programs: p, Items: i}
}

// liveItemView is one run-sheet row in the live view.
type liveItemView struct {
	itemView
	IsCurrent bool   `json:"is_current"`
	IsNext    bool   `json:"is_next"`
	Countdown string `json:"countdown,omitempty"`
}

// Live returns the live view of a program.  Works for any program
// with public access enabled regardless of status, so admins can
// preview drafts through the same endpoint they share.
func (h *LiveHandler) Live(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Programs.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if !p.PublicAccessEnabled {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	items, err := h.Items.ListByProgram(ctx, id)
	if err != nil {
		return repoError(c, err)
	}

	now := time.Now().UTC()
	current := timeline.CurrentIndex(items, now)
	_, hasNext := timeline.NextItem(items, current)

	views := make([]liveItemView, 0, len(items))
	for i, it := range items {
		v := liveItemView{itemView: toItemView(it)}
		v.IsCurrent = i == current
		v.IsNext = hasNext && i == current+1
		if i >= current {
			v.Countdown = timeline.TimeUntil(items, i, now)
		}
		views = append(views, v)
	}

	resp := echo.Map{
		"program":                toProgramView(p, nil),
		"items":                  views,
		"current_index":          current,
		"server_time":            now.Format(time.RFC3339),
		"heartbeat_interval_sec": h.Cfg.HeartbeatSec,
	}
	if hasNext {
		resp["next_index"] = current + 1
	}
	return c.JSON(http.StatusOK, resp)
}
