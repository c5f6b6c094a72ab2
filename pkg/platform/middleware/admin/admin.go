package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	jwttoken "vendorwatch/internal/jwt_token"
)

// TokenValidator validates a bearer token and returns its operator claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeyOperator struct{}

// OperatorFromContext returns the subject of the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(contextKeyOperator{}).(string)
	return subject
}

// RequireAdminJWT admits requests carrying a valid operator token with the ADMIN role.
func RequireAdminJWT(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := middleware.GetReqID(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "admin request without bearer token", "request_id", requestID)
				writeDenied(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}

			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "admin token rejected", "request_id", requestID, "error", err)
				writeDenied(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if !claims.IsAdmin() {
				logger.WarnContext(ctx, "operator lacks admin role",
					"request_id", requestID,
					"subject", claims.Subject,
					"role", claims.Role,
				)
				writeDenied(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}

			ctx = context.WithValue(ctx, contextKeyOperator{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeDenied(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + description + `"}`))
}
