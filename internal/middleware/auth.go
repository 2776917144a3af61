package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"adherence-tracker/internal/auth"
	"adherence-tracker/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// UserContext holds user information in the request context
type UserContext struct {
	UserID     string
	Role       string   // 'patient', 'family' or 'doctor'
	PatientIDs []string // Patients a family member or doctor is linked to
}

// CanAccessPatient reports whether the user may read a patient's data.
// Patients see only themselves; everyone else needs an explicit link.
func (u *UserContext) CanAccessPatient(patientID string) bool {
	if u == nil || patientID == "" {
		return false
	}
	if u.Role == models.RolePatient {
		return u.UserID == patientID
	}
	for _, id := range u.PatientIDs {
		if id == patientID {
			return true
		}
	}
	return false
}

// CanRecordDoses reports whether the user may mark doses for a patient
func (u *UserContext) CanRecordDoses(patientID string) bool {
	if u == nil || u.Role == models.RoleDoctor {
		return false
	}
	return u.CanAccessPatient(patientID)
}

// CanManageMedications reports whether the user may change a patient's
// medication list
func (u *UserContext) CanManageMedications(patientID string) bool {
	if u == nil || u.Role == models.RoleFamily {
		return false
	}
	return u.CanAccessPatient(patientID)
}

// AuthMiddleware validates JWT tokens and adds user context
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth ensures the user is authenticated
func (am *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := am.getToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := am.jwtManager.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		switch claims.Role {
		case models.RolePatient, models.RoleFamily, models.RoleDoctor:
		default:
			writeError(w, http.StatusForbidden, "Unknown role")
			return
		}

		userCtx := &UserContext{
			UserID:     claims.UserID,
			Role:       claims.Role,
			PatientIDs: claims.PatientIDs,
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userCtx)))
	})
}

// getToken extracts JWT token from request
func (am *AuthMiddleware) getToken(r *http.Request) string {
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return ""
}

// WithUser stores the user context on ctx
func WithUser(ctx context.Context, u *UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// GetUserContext retrieves user context from request
func GetUserContext(r *http.Request) *UserContext {
	if userCtx, ok := r.Context().Value(UserContextKey).(*UserContext); ok {
		return userCtx
	}
	return nil
}

// GetUserID retrieves user ID from request context
func GetUserID(ctx context.Context) string {
	if userCtx, ok := ctx.Value(UserContextKey).(*UserContext); ok {
		return userCtx.UserID
	}
	return ""
}

// GetRole retrieves user role from request context
func GetRole(ctx context.Context) string {
	if userCtx, ok := ctx.Value(UserContextKey).(*UserContext); ok {
		return userCtx.Role
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
