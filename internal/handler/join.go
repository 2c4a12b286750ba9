package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/model"
	"github.com/volunteerapp/program-server/internal/presence"
	"github.com/volunteerapp/program-server/internal/queue"
	"github.com/volunteerapp/program-server/internal/repository"
	"github.com/volunteerapp/program-server/internal/share"
	queue_publisher "github.com/volunteerapp/program-server/internal/service"
)

// JoinHandler serves the public join surface: resolving share
// credentials, joining a program, heartbeats, leaves and guest
// session resumption.  None of these routes require authentication;
// a signed-in volunteer's bearer token, when present, links the
// participant row to their account.
type JoinHandler struct {
	Resolver     *share.Resolver
	Tracker      *presence.Tracker
	Programs     *repository.ProgramRepo
	Participants *repository.ParticipantRepo
	Sessions     *presence.SessionStore
}

func NewJoinHandler(r *share.Resolver, t *presence.Tracker, p *repository.ProgramRepo,
	pp *repository.ParticipantRepo, s *presence.SessionStore) *JoinHandler {
	return &JoinHandler{Resolver: r, Tracker: t, Programs: p, Participants: pp, Sessions: s}
}

// joinPreview is what a resolved code or token reveals before
// joining: enough to confirm "is this the right event?" and nothing
// an uninvited caller could abuse.
type joinPreview struct {
	ProgramID          uint64  `json:"program_id"`
	Title              string  `json:"title"`
	Description        *string `json:"description,omitempty"`
	Date               *string `json:"date,omitempty"`
	StartTime          *string `json:"start_time,omitempty"`
	Status             string  `json:"status"`
	ActiveParticipants uint32  `json:"active_participants_count"`
}

func toPreview(p *model.Program) joinPreview {
	return joinPreview{
		ProgramID:          p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Date:               p.Date,
		StartTime:          p.StartTime,
		Status:             p.Status,
		ActiveParticipants: p.ActiveParticipants,
	}
}

type participantResp struct {
	ID         uint64    `json:"id"`
	ProgramID  uint64    `json:"program_id"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsGuest    bool      `json:"is_guest"`
	JoinedAt   time.Time `json:"joined_at"`
	LastActive time.Time `json:"last_active"`
}

func toParticipantResp(p *model.Participant) participantResp {
	return participantResp{
		ID:         p.ID,
		ProgramID:  p.ProgramID,
		FullName:   p.FullName,
		Role:       p.Role,
		IsGuest:    p.IsGuest,
		JoinedAt:   p.JoinedAt,
		LastActive: p.LastActive,
	}
}

// ResolveCode previews the program behind a join code.  Incomplete
// input gets a 400 with a hint; an unknown or access-disabled code is
// a plain 404, indistinguishable by design.
func (h *JoinHandler) ResolveCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Resolver.ResolveByCode(ctx, c.QueryParam("code"))
	if err != nil {
		if errors.Is(err, share.ErrBadCode) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toPreview(p))
}

// ResolveToken previews the program behind a deep-link token.
func (h *JoinHandler) ResolveToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Resolver.ResolveByToken(ctx, c.Param("token"))
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toPreview(p))
}

type joinReq struct {
	ProgramID uint64  `json:"program_id"`
	FullName  string  `json:"full_name"`
	Role      string  `json:"role"`
	DeviceID  string  `json:"device_id"`
	PushToken *string `json:"push_token"`
}

// Join creates (or, for a returning device, revives) a participant
// row on the program.  A bearer token, when present, links the row to
// the volunteer's account; otherwise the join is anonymous.  The
// program must be resolvable, i.e. have public access enabled.
func (h *JoinHandler) Join(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.TrimSpace(req.Role)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.ProgramID == 0 || req.FullName == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "program_id/full_name/role required"})
	}

	uid, signedIn := currentUserID(c)
	// The device id (or, for signed-in volunteers, the account) is the
	// credential later heartbeats and leaves are verified against, so
	// an anonymous join must carry one.
	if !signedIn && req.DeviceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "device_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Programs.GetByID(ctx, req.ProgramID)
	if err != nil {
		return repoError(c, err)
	}
	if !p.PublicAccessEnabled {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	join := presence.JoinRequest{
		ProgramID: req.ProgramID,
		FullName:  req.FullName,
		Role:      req.Role,
		DeviceID:  req.DeviceID,
		PushToken: req.PushToken,
	}
	if signedIn {
		join.UserID = &uid
	}
	participant, err := h.Tracker.Join(ctx, join)
	if err != nil {
		return repoError(c, err)
	}

	h.publishEvent(queue.ActionJoined, participant, p)
	return c.JSON(http.StatusCreated, toParticipantResp(participant))
}

type livenessReq struct {
	DeviceID string `json:"device_id"`
}

// verifyParticipant loads the participant and checks the caller's
// credentials (joining device id or bearer account) against the row.
// Participants can only write their own rows; anything else is
// forbidden.
func (h *JoinHandler) verifyParticipant(c echo.Context, ctx context.Context, id uint64) (*model.Participant, error) {
	participant, err := h.Participants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var req livenessReq
	_ = c.Bind(&req)
	var userID *uint64
	if uid, ok := currentUserID(c); ok {
		userID = &uid
	}
	if !presence.CanModify(participant, strings.TrimSpace(req.DeviceID), userID) {
		return nil, repository.ErrForbidden
	}
	return participant, nil
}

// Heartbeat stamps the participant as still present.  Clients call it
// on a fixed interval while the live view is open, sending the same
// device_id they joined with.
func (h *JoinHandler) Heartbeat(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.verifyParticipant(c, ctx, id); err != nil {
		return repoError(c, err)
	}
	if err := h.Tracker.Heartbeat(ctx, id); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Leave soft-leaves the participant: the row survives for history but
// immediately drops out of the active set.
func (h *JoinHandler) Leave(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	participant, err := h.verifyParticipant(c, ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if err := h.Tracker.Leave(ctx, id, participant.ProgramID); err != nil {
		return repoError(c, err)
	}
	if p, err := h.Programs.GetByID(ctx, participant.ProgramID); err == nil {
		h.publishEvent(queue.ActionLeft, participant, p)
	}
	return c.NoContent(http.StatusNoContent)
}

// Session resumes a guest identity for a returning device.  404 when
// the device has no stored session or its program is gone.
func (h *JoinHandler) Session(c echo.Context) error {
	deviceID := strings.TrimSpace(c.QueryParam("device_id"))
	if deviceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "device_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Load(ctx, deviceID)
	if err != nil {
		return repoError(c, err)
	}
	if sess == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no session"})
	}
	p, err := h.Programs.GetByID(ctx, sess.ProgramID)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session": sess,
		"program": toPreview(p),
	})
}

// publishEvent pushes a participant event onto the broker without
// blocking the request.  Failures are logged by the publisher and
// otherwise ignored.
func (h *JoinHandler) publishEvent(action string, participant *model.Participant, program *model.Program) {
	ev := queue.ParticipantEvent{
		Action:        action,
		ParticipantID: participant.ID,
		ProgramID:     program.ID,
		ProgramTitle:  program.Title,
		FullName:      participant.FullName,
		Role:          participant.Role,
		IsGuest:       participant.IsGuest,
		ActiveCount:   int(program.ActiveParticipants),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishParticipantEvent(ctx, ev)
	}()
}
