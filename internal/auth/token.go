package auth

import (
	"errors"
	"time"

	"feedbackhub/backend/internal/apperr"
	"feedbackhub/backend/internal/config"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the operator session claims. The subject is the operator UUID.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 operator session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a session token for an operator.
func (m *TokenManager) Issue(operatorID uuid.UUID, email, name string, role Role) (string, error) {
	now := m.now()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID.String(),
			Issuer:    config.TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates a session token and returns the operator principal.
func (m *TokenManager) Parse(tokenString string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, apperr.InvalidCredential("Session expired")
		}
		return Principal{}, apperr.InvalidCredential("Invalid or expired token")
	}

	operatorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, apperr.InvalidCredential("Invalid or expired token")
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		role = RoleAgent
	}
	return Operator(operatorID, claims.Email, claims.Name, role), nil
}
