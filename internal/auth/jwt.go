package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

type Claims struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`                  // 'patient', 'family' or 'doctor'
	PatientIDs []string `json:"patient_ids,omitempty"` // Patients a family member or doctor may see
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret          []byte
	sessionDuration time.Duration
}

func NewJWTManager(secret string, sessionDuration time.Duration) *JWTManager {
	return &JWTManager{
		secret:          []byte(secret),
		sessionDuration: sessionDuration,
	}
}

// GenerateToken creates a new JWT token for a user
func (m *JWTManager) GenerateToken(userID, role string, patientIDs []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Role:       role,
		PatientIDs: patientIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken generates a new token with extended expiration. Expired tokens
// are accepted as long as the signature checks out.
func (m *JWTManager) RefreshToken(tokenString string) (string, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil && !errors.Is(err, ErrExpiredToken) {
		return "", err
	}

	if claims == nil {
		claims = &Claims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return m.secret, nil
		}, jwt.WithoutClaimsValidation())
		if err != nil || claims.UserID == "" {
			return "", ErrInvalidToken
		}
	}

	return m.GenerateToken(claims.UserID, claims.Role, claims.PatientIDs)
}

// SessionDuration returns the configured session duration
func (m *JWTManager) SessionDuration() time.Duration {
	return m.sessionDuration
}
