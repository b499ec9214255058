package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/platform/ctxutil"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type stubAuth struct {
	student uuid.UUID
	err     error
	seen    string
}

func (s *stubAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	s.seen = token
	if s.err != nil {
		return ctx, s.err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: token, StudentID: s.student}), nil
}

func (s *stubAuth) IssueToken(uuid.UUID, time.Duration) (string, error) { return "", nil }

func authEngine(auth *stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), auth).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.StudentID(c.Request.Context()).String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	student := uuid.New()
	cases := []struct {
		name   string
		auth   *stubAuth
		path   string
		header string
		status int
		token  string
	}{
		{name: "bearer header", auth: &stubAuth{student: student}, path: "/me", header: "Bearer abc", status: http.StatusOK, token: "abc"},
		{name: "query token", auth: &stubAuth{student: student}, path: "/me?token=qq", status: http.StatusOK, token: "qq"},
		{name: "missing", auth: &stubAuth{student: student}, path: "/me", status: http.StatusUnauthorized},
		{name: "wrong scheme", auth: &stubAuth{student: student}, path: "/me", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "rejected", auth: &stubAuth{err: errors.New("bad token")}, path: "/me", header: "Bearer abc", status: http.StatusUnauthorized, token: "abc"},
		{name: "nil subject", auth: &stubAuth{}, path: "/me", header: "Bearer abc", status: http.StatusUnauthorized, token: "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authEngine(tc.auth).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.auth.seen != tc.token {
				t.Fatalf("token passed to auth: want=%q got=%q", tc.token, tc.auth.seen)
			}
			if tc.status == http.StatusOK && rec.Body.String() != student.String() {
				t.Fatalf("student id not on context: %s", rec.Body.String())
			}
		})
	}
}
