// Auth middleware is used to validate the JWT sent via the mechat-token cookie.
// This verification is needed for endpoints (and the socket) which needs authenticated users.

package auth

import (
	"Mechat/internal/errors"
	"Mechat/internal/user"
	"Mechat/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Name of the cookie carrying the session token.
const TokenCookie = "mechat-token"

// This middleware is used to verify and validate the incoming JWT.
// On success the authenticated entity.User is stored in the request's context under "User".
// Blocks the request to go further into other handlers if token is invalid.
func AuthMiddleware(logger log.Logger, users user.Repository, secret string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		// Extract token from cookie
		token, err := gctx.Request.Cookie(TokenCookie)
		if err != nil || token.Value == "" {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Please login to access this route"))
			return
		}
		// Parse the token with secret if the token is valid
		userID, valerr := parseToken(secret, token.Value)
		if valerr != nil {
			logger.WithCtx(gctx).Debug().Err(valerr).Msg("Rejected token in AuthMiddleware")
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Invalid token"))
			return
		}
		// Verify the user still exists in the DB
		usr, dberr := users.GetUser(gctx, logger, userID)
		if dberr != nil {
			if errors.IsNotFound(dberr) {
				// token refers to a deleted account
				gctx.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Invalid token"))
				return
			}
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, errors.InternalServerError(""))
			return
		}
		// Set User in request's context
		// This pair will be used further down in the handler chain
		gctx.Set("User", usr)
		gctx.Next()
	}
}

// Helper to parse the token string and return the user id carried in its _id claim.
func parseToken(secret string, token string) (string, error) {
	vrftoken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// Check the signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("Unexpected signing method found: " + t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !vrftoken.Valid {
		return "", errors.New("token is not valid")
	}
	tokenclaims, ok := vrftoken.Claims.(jwt.MapClaims)
	if !ok {
		// Type assertion error
		return "", errors.New("unexpected claims type")
	}
	userID, ok := tokenclaims["_id"].(string)
	if !ok || userID == "" {
		return "", errors.New("token carries no _id claim")
	}
	return userID, nil
}
