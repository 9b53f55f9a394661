// Mock methods required in Mechat tests are all here.

package test

import (
	"Mechat/internal/entity"
	"Mechat/pkg/middlewares"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Global instance of gin MockRouter to be used during API testing.
var testRouter *gin.Engine

// Singleton to make sure testRouter is initialized only once.
var once sync.Once

// MockRouter returns the shared router, packages register their handlers on it once.
func MockRouter() *gin.Engine {
	once.Do(func() {
		testRouter = NewRouter()
	})
	return testRouter
}

// NewRouter returns a fresh gin engine in test mode, for tests that need isolated routes.
func NewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.CORSMiddleware([]string{"*"})) // CORS middleware which allows request from all origin
	return router
}

// Cookie to be used in tests to bypass MockAuthMiddleware
var MockAuthAllowCookie *http.Cookie = &http.Cookie{
	Name:     "mode",
	Value:    "test",
	HttpOnly: true,
}

// MockUserCookies returns the cookies which authenticate as user through MockAuthMiddleware.
func MockUserCookies(user entity.User) []*http.Cookie {
	return []*http.Cookie{
		MockAuthAllowCookie,
		{Name: "user", Value: user.IDHex()},
		{Name: "name", Value: user.Name},
	}
}

// MockAuthMiddleware authenticates requests carrying MockUserCookies without touching the DB.
func MockAuthMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		token, err := gctx.Request.Cookie("mode")
		if err != nil {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		} else if token.Value != "test" {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		idcookie, err := gctx.Request.Cookie("user")
		if err != nil {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		id, prserr := primitive.ObjectIDFromHex(idcookie.Value)
		if prserr != nil {
			gctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		user := entity.User{ID: id}
		if name, err := gctx.Request.Cookie("name"); err == nil {
			user.Name = name.Value
		}
		// Set User in request's context
		// This pair will be used further down in the handler chain
		gctx.Set("User", user)
		gctx.Next()
	}
}
