package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "vendorwatch/internal/jwt_token"
	"vendorwatch/internal/vendors/models"
)

func TestRequireAdminJWT(t *testing.T) {
	tokens := jwttoken.NewJWTService("admin-test-key")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seenOperator string
	protected := RequireAdminJWT(tokens, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOperator = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	issue := func(role models.Role) string {
		token, err := tokens.GenerateOperatorToken("ops@vendorwatch.example", role, time.Hour)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized},
		{name: "reviewer role", header: "Bearer " + issue(models.RoleReviewer), wantStatus: http.StatusForbidden},
		{name: "admin role", header: "Bearer " + issue(models.RoleAdmin), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenOperator = ""
			req := httptest.NewRequest(http.MethodGet, "/admin/compliance/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ops@vendorwatch.example", seenOperator)
			} else {
				assert.Empty(t, seenOperator)
				assert.Contains(t, rec.Body.String(), "error_description")
			}
		})
	}
}
