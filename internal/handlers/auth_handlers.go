package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"adherence-tracker/internal/auth"
	"adherence-tracker/internal/middleware"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// CurrentUserResponse describes the caller as seen by the API
type CurrentUserResponse struct {
	UserID     string   `json:"userId"`
	Role       string   `json:"role"`
	PatientIDs []string `json:"patientIds"`
}

const authCookie = "auth_token"

func setAuthCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// HandleRefreshToken issues a fresh token for a valid or expired one.
// Expired tokens are accepted so long as their signature checks out.
func HandleRefreshToken(jwtManager *auth.JWTManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := getTokenFromRequest(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		newToken, err := jwtManager.RefreshToken(token)
		if err != nil {
			logger.Info("token refresh failed",
				zap.String("ip", getIPAddress(r)),
				zap.Error(err),
			)
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		setAuthCookie(w, newToken, int(jwtManager.SessionDuration().Seconds()))
		respondJSON(w, http.StatusOK, AuthResponse{
			Success: true,
			Message: "Token refreshed successfully",
			Token:   newToken,
		})
	}
}

// HandleLogout clears the session cookie
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setAuthCookie(w, "", -1)
		respondJSON(w, http.StatusOK, AuthResponse{
			Success: true,
			Message: "Logout successful",
		})
	}
}

// HandleGetCurrentUser returns the identity carried by the caller's token
func HandleGetCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := middleware.GetUserContext(r)
		if u == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ids := u.PatientIDs
		if ids == nil {
			ids = []string{}
		}
		respondJSON(w, http.StatusOK, CurrentUserResponse{
			UserID:     u.UserID,
			Role:       u.Role,
			PatientIDs: ids,
		})
	}
}

// HandleGetCSRFToken returns a new CSRF token
func HandleGetCSRFToken(csrf *middleware.CSRFProtection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.GenerateToken()})
	}
}

// getIPAddress extracts the client IP address from the request
func getIPAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// getTokenFromRequest extracts JWT token from request (cookie or header)
func getTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(authCookie); err == nil {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return ""
}
