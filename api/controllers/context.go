package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/amertacoffee/amerta-backend/api/middleware"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
)

// requestUserID pulls the authenticated user's ID out of the request
// context seeded by the auth middleware.
func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
