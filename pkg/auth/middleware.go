package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/pkg/utils"
)

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
	RoleKey   ContextKey = "role"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the caller's id and
// role in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := validator.ValidateToken(token)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
				return
			}

			ctx := WithUser(r.Context(), uuid.MustParse(claims.UserID), claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff lets only teachers and admins through.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStaff(r.Context()) {
			utils.RespondWithError(w, http.StatusForbidden, "forbidden", "Staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, userID uuid.UUID, role Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}

func UserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func IsStaff(ctx context.Context) bool {
	role, _ := ctx.Value(RoleKey).(Role)
	return role.IsStaff()
}

// CanAccess reports whether the caller may read or act on data owned by owner.
func CanAccess(ctx context.Context, owner uuid.UUID) bool {
	return IsStaff(ctx) || UserID(ctx) == owner
}
