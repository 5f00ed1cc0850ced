package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// CreateToken mints a signed HS256 token carrying the user ID and an admin
// flag, valid for 24 hours.
func CreateToken(userID string, isAdmin bool, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"admin": isAdmin,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ExtractClaims validates the token signature and expiry and returns the
// user ID and admin flag it carries.
func ExtractClaims(tokenString, secret string) (string, bool, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", false, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", false, errors.New("invalid token claims")
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", false, errors.New("token missing subject")
	}

	isAdmin, _ := claims["admin"].(bool)

	return userID, isAdmin, nil
}

// ExtractUserIDFromToken validates the token and returns only the user ID.
func ExtractUserIDFromToken(tokenString, secret string) (string, error) {
	userID, _, err := ExtractClaims(tokenString, secret)
	return userID, err
}
