// Session token issuing in Mechat.

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Lifetime of the mechat-token cookie.
const TokenTTL = 15 * 24 * time.Hour

// SignToken issues an HS256 token for userID carrying the same claims AuthMiddleware reads.
func SignToken(secret string, userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"_id": userID,
		"iat": now.Unix(),
		"exp": now.Add(TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
