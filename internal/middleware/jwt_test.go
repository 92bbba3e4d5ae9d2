package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melo-app/melo-api/internal/models"
	"github.com/melo-app/melo-api/internal/service"
)

const testTokenSecret = "jwt-test-secret"

func testAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: testTokenSecret})
}

func mintToken(t *testing.T, secret string) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runWithMiddleware(handler gin.HandlerFunc, authorization string) (*httptest.ResponseRecorder, *models.JWTClaims) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	var seen *models.JWTClaims

	router := gin.New()
	router.GET("/resource", handler, func(c *gin.Context) {
		if value, ok := c.Get(ContextUserKey); ok {
			seen = value.(*models.JWTClaims)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(recorder, req)
	return recorder, seen
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	recorder, seen := runWithMiddleware(JWT(testAuthService()), "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Nil(t, seen)
}

func TestJWTAcceptsValidToken(t *testing.T) {
	token := mintToken(t, testTokenSecret)
	recorder, seen := runWithMiddleware(JWT(testAuthService()), "Bearer "+token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
}

func TestOptionalJWTPassesAnonymous(t *testing.T) {
	recorder, seen := runWithMiddleware(OptionalJWT(testAuthService()), "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, seen)
}

func TestOptionalJWTAttachesClaims(t *testing.T) {
	token := mintToken(t, testTokenSecret)
	recorder, seen := runWithMiddleware(OptionalJWT(testAuthService()), "Bearer "+token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
}

func TestOptionalJWTIgnoresBadToken(t *testing.T) {
	token := mintToken(t, "some-other-secret")
	recorder, seen := runWithMiddleware(OptionalJWT(testAuthService()), "Bearer "+token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, seen)
}
