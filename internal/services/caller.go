package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/platform/apierr"
	"github.com/lumenlms/lms-backend/internal/platform/ctxutil"
)

var errNoStudent = errors.New("missing student identity")

// studentFrom resolves the authenticated student placed on ctx by the auth
// middleware.
func studentFrom(ctx context.Context) (uuid.UUID, error) {
	id := ctxutil.StudentID(ctx)
	if id == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusUnauthorized, "unauthorized", errNoStudent)
	}
	return id, nil
}
