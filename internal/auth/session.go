package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleSuperadmin = "superadmin"

type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignSession issues an HS256 session token for the given role.
func SignSession(secret []byte, role string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func VerifySession(secret []byte, token string) (*SessionClaims, error) {
	t, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*SessionClaims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
