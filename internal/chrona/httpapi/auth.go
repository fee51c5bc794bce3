package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = 24 * time.Hour

// ErrNoToken is returned when a request carries no bearer token at all,
// as opposed to an invalid one.
var ErrNoToken = errors.New("httpapi: no bearer token")

// GenerateToken issues a signed HS256 token identifying userID. It is used
// by the bootstrap path and by tests; there is no login endpoint.
func GenerateToken(userID int64, secret string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseToken validates tokenStr and extracts the acting user ID.
func parseToken(tokenStr, secret string) (int64, error) {
	token, err := jwt.Parse(tokenStr,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return 0, fmt.Errorf("httpapi: parse token: %w", err)
	}
	if !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenMalformed
	}
	// JSON numbers decode as float64.
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, jwt.ErrTokenMalformed
	}
	return int64(userID), nil
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrNoToken
	}
	return parts[1], nil
}

// authenticate resolves the acting user from the request, or fails.
func (s *Server) authenticate(r *http.Request) (int64, error) {
	token, err := bearerToken(r)
	if err != nil {
		return 0, err
	}
	return parseToken(token, s.jwtSecret)
}
