package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateJWT signs a token carrying the user id and role. Token issuance is
// owned by the external auth system; this exists for tooling and tests.
func GenerateJWT(secret, userID, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    time.Now().Add(ttl).Unix(),
		"iat":    time.Now().Unix(),
		"iss":    "exchange-chat",
		"sub":    "user-auth",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT verifies an HS256 token and returns the embedded user id and role.
func ParseJWT(secret, tokenStr string) (string, string, error) {
	if tokenStr == "" {
		return "", "", errors.New("token is empty")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", errors.New("invalid token")
	}
	if !token.Valid {
		return "", "", errors.New("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims")
	}

	userID, ok1 := claims["userId"].(string)
	role, _ := claims["role"].(string)
	if !ok1 || userID == "" {
		return "", "", errors.New("bad claims")
	}

	return userID, role, nil
}
