package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The state parameter on the authorize redirect is a short-lived signed
// token rather than a server-side record: the callback can verify that this
// process minted the state, and when, without storing anything.
const stateTTL = 10 * time.Minute

type stateClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

func newStateToken(secret []byte, now time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("state nonce: %w", err)
	}

	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
		Nonce: hex.EncodeToString(nonce),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verifyStateToken(secret []byte, token string) error {
	_, err := jwt.ParseWithClaims(token, &stateClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid state parameter: %w", err)
	}
	return nil
}
