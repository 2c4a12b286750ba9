package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/model"
	"github.com/volunteerapp/program-server/internal/repository"
)

// ownerStub answers ownership checks without a database.
type ownerStub struct {
	err error
}

func (s ownerStub) GetByIDForOwner(ctx context.Context, id, ownerID uint64) (*model.Program, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Program{ID: id, OwnerID: ownerID}, nil
}

func programCtx(userID *uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")
	if userID != nil {
		c.Set("user_id", *userID)
	}
	return c, rec
}

// Every program-scoped admin route must verify ownership before
// touching the program's data, reads included.
func TestProgramScopedReadsRunOwnershipGate(t *testing.T) {
	uid := uint64(5)
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"someone else's program", repository.ErrForbidden, http.StatusForbidden},
		{"unknown program", sql.ErrNoRows, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := &ItemHandler{Programs: ownerStub{err: tc.err}}
			participants := &ParticipantHandler{Programs: ownerStub{err: tc.err}}
			handlers := map[string]echo.HandlerFunc{
				"items list":        items.List,
				"suggest time":      items.SuggestTime,
				"participants list": participants.ListByProgram,
				"active list":       participants.ListActive,
			}
			for name, h := range handlers {
				c, rec := programCtx(&uid)
				if err := h(c); err != nil {
					t.Fatalf("%s: %v", name, err)
				}
				if rec.Code != tc.want {
					t.Errorf("%s: status = %d, want %d", name, rec.Code, tc.want)
				}
			}
		})
	}
}

func TestProgramScopedReadsRequireAuth(t *testing.T) {
	items := &ItemHandler{Programs: ownerStub{}}
	participants := &ParticipantHandler{Programs: ownerStub{}}
	handlers := map[string]echo.HandlerFunc{
		"items list":        items.List,
		"suggest time":      items.SuggestTime,
		"participants list": participants.ListByProgram,
		"active list":       participants.ListActive,
	}
	for name, h := range handlers {
		c, rec := programCtx(nil)
		if err := h(c); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, http.StatusUnauthorized)
		}
	}
}
