package middleware

import (
	"net/http"
	"strings"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bearerToken extracts the session token from "Authorization: Bearer <token>".
// ok is false when the header is absent, malformed is true when it is present
// but unusable.
func bearerToken(r *http.Request) (token string, ok bool, malformed bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, false
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false, true
	}

	// Sessions are keyed by UUID tokens
	if _, err := uuid.Parse(token); err != nil {
		return "", false, true
	}

	return token, true, false
}

// resolveSession returns a request carrying the session's user, or writes an
// error response and returns nil.
func resolveSession(w http.ResponseWriter, r *http.Request, token string, sessionRepo repository.SessionRepository, logger *zap.Logger) *http.Request {
	session, err := sessionRepo.FindValidSession(r.Context(), token)
	if err != nil {
		logger.Error("Failed to validate session", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
		return nil
	}

	if session == nil {
		logger.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
		utils.ResponseUnauthorized(w, "Invalid or expired session")
		return nil
	}

	ctx := utils.SetUserContext(r.Context(), session.UserID, string(entity.RoleCustomer))
	ctx = utils.SetTokenContext(ctx, token)

	return r.WithContext(ctx)
}

// AuthSession requires a valid session token
func AuthSession(sessionRepo repository.SessionRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok, malformed := bearerToken(r)
			if malformed {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}
			if !ok {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			if r = resolveSession(w, r, token, sessionRepo, logger); r == nil {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth lets guests through. A token that is sent must still be valid.
func OptionalAuth(sessionRepo repository.SessionRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok, malformed := bearerToken(r)
			if malformed {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if r = resolveSession(w, r, token, sessionRepo, logger); r == nil {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Admin requires the authenticated user to carry the admin role. Must run
// after AuthSession.
func Admin(userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Admin check: failed to get user",
					zap.Error(err), zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			if user == nil || !user.IsActive || user.Role != entity.RoleAdmin {
				logger.Warn("Admin check: non-admin access attempt",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID, string(entity.RoleAdmin))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
