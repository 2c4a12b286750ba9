package handler

import (
    "context"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/volunteerapp/program-server/internal/model"
)

// OwnerVerifier checks that a program exists and belongs to a user.
// Satisfied by repository.ProgramRepo; handlers that only read
// program-scoped data take this narrow dependency so every route,
// read or write, runs the same ownership gate.
type OwnerVerifier interface {
    GetByIDForOwner(ctx context.Context, id, ownerID uint64) (*model.Program, error)
}

// currentUserID extracts the authenticated user's ID from the request
// context.  JWTAuth stores the raw "sub" claim, which the JWT library
// decodes as float64 for numeric values; some clients send it as a
// numeric string.  Returns false when no usable ID is present.
func currentUserID(c echo.Context) (uint64, bool) {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v), true
    case uint64:
        return v, true
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}
