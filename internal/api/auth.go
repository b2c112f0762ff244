package api

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// NewJWTGuard builds the RS256 middleware for /sessions and /audit. Tokens must
// carry the configured issuer when one is set.
func NewJWTGuard(publicKeyPEM []byte, issuer string) (echo.MiddlewareFunc, error) {
	signingKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			token, err := parser.ParseWithClaims(auth, jwt.MapClaims{}, func(*jwt.Token) (interface{}, error) {
				return signingKey, nil
			})
			if err != nil {
				return nil, err
			}
			return token, nil
		},
	}), nil
}
