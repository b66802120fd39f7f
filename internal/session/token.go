package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var ErrNoSubject = errors.New("session: token has no subject")

// ViewerID reads the "sub" claim from a bearer token without verifying its
// signature. The result only personalises the UI; the service enforces all
// authorisation.
func ViewerID(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("session: empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("session: decode token: %w", err)
	}
	sub, ok := claims["sub"].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}
