// Auth API tests in Mechat.

package auth

import (
	"Mechat/internal/entity"
	"Mechat/internal/errors"
	"Mechat/internal/test"
	"Mechat/pkg/log"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mockSecret = "MockJWTSecret"

// Global instance of log.Logger to be used during auth API testing.
var logger log.Logger = log.NewWithWriter("test", io.Discard)

// In memory user.Repository.
type fakeUsers struct {
	users map[string]entity.User
	err   error
}

func (f fakeUsers) GetUser(ctx context.Context, logger log.Logger, id string) (entity.User, error) {
	if f.err != nil {
		return entity.User{}, f.err
	}
	usr, ok := f.users[id]
	if !ok {
		return entity.User{}, errors.NotFound("User not available")
	}
	return usr, nil
}

func (f fakeUsers) GetUsers(ctx context.Context, logger log.Logger, ids []primitive.ObjectID) (map[primitive.ObjectID]entity.User, error) {
	found := map[primitive.ObjectID]entity.User{}
	for _, id := range ids {
		if usr, ok := f.users[id.Hex()]; ok {
			found[id] = usr
		}
	}
	return found, f.err
}

// Helper to build up a mock router instance for testing Mechat auth.
func setupMockRouter(users fakeUsers) *gin.Engine {
	router := test.NewRouter()
	APIHandlers(router, AuthMiddleware(logger, users, mockSecret), logger)
	return router
}

func tokenCookie(value string) []*http.Cookie {
	return []*http.Cookie{{Name: TokenCookie, Value: value}}
}

func TestValidateToken(t *testing.T) {
	alice := entity.User{ID: primitive.NewObjectID(), Name: "Alice", Username: "alice"}
	router := setupMockRouter(fakeUsers{users: map[string]entity.User{alice.IDHex(): alice}})

	token, err := SignToken(mockSecret, alice.IDHex())
	require.NoError(t, err)

	w := test.ExecuteAPITest(t, router, test.RequestAPITest{
		Method:       http.MethodGet,
		Path:         "/api/v1/auth/validate_token",
		WantResponse: []int{http.StatusOK},
		Cookies:      tokenCookie(token),
	})
	var body struct {
		Success bool        `json:"success"`
		User    entity.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, alice.ID, body.User.ID)
	assert.Equal(t, "Alice", body.User.Name)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	alice := entity.User{ID: primitive.NewObjectID(), Name: "Alice"}
	router := setupMockRouter(fakeUsers{users: map[string]entity.User{alice.IDHex(): alice}})

	wrongSecret, _ := SignToken("SomeOtherSecret", alice.IDHex())
	unknownUser, _ := SignToken(mockSecret, primitive.NewObjectID().Hex())
	noID, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).SignedString([]byte(mockSecret))
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"_id": alice.IDHex(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(mockSecret))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"_id": alice.IDHex()}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	testcases := map[string][]*http.Cookie{
		"no cookie":    nil,
		"empty cookie": tokenCookie(""),
		"garbage":      tokenCookie("not.a.token"),
		"wrong secret": tokenCookie(wrongSecret),
		"unknown user": tokenCookie(unknownUser),
		"missing _id":  tokenCookie(noID),
		"expired":      tokenCookie(expired),
		"alg none":     tokenCookie(unsigned),
		"other cookie": {{Name: "access_token", Value: unknownUser}},
	}
	for name, cookies := range testcases {
		t.Run(name, func(t *testing.T) {
			test.ExecuteAPITest(t, router, test.RequestAPITest{
				Method:       http.MethodGet,
				Path:         "/api/v1/auth/validate_token",
				WantResponse: []int{http.StatusUnauthorized},
				Cookies:      cookies,
			})
		})
	}
}

func TestAuthMiddlewareRepositoryFailure(t *testing.T) {
	router := setupMockRouter(fakeUsers{err: errors.InternalServerError("")})
	token, _ := SignToken(mockSecret, primitive.NewObjectID().Hex())
	test.ExecuteAPITest(t, router, test.RequestAPITest{
		Method:       http.MethodGet,
		Path:         "/api/v1/auth/validate_token",
		WantResponse: []int{http.StatusInternalServerError},
		Cookies:      tokenCookie(token),
	})
}

func TestLogout(t *testing.T) {
	alice := entity.User{ID: primitive.NewObjectID(), Name: "Alice"}
	router := setupMockRouter(fakeUsers{users: map[string]entity.User{alice.IDHex(): alice}})
	token, _ := SignToken(mockSecret, alice.IDHex())

	w := test.ExecuteAPITest(t, router, test.RequestAPITest{
		Method:       http.MethodPost,
		Path:         "/api/v1/auth/logout",
		WantResponse: []int{http.StatusOK},
		Cookies:      tokenCookie(token),
	})
	resp := w.Result()
	defer resp.Body.Close()
	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)
	assert.True(t, cleared.HttpOnly)
}
