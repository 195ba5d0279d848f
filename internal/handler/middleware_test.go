package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	return signClaims(t, secret, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
}

func signClaims(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestIdentityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		secret         string
		header         string
		cookie         string
		expectedStatus int
		expectedOwner  string
	}{
		{
			name:           "no token is anonymous",
			secret:         testSecret,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid bearer token",
			secret:         testSecret,
			header:         "Bearer " + signToken(t, testSecret, "user-1"),
			expectedStatus: http.StatusOK,
			expectedOwner:  "user-1",
		},
		{
			name:           "valid cookie",
			secret:         testSecret,
			cookie:         signToken(t, testSecret, "user-2"),
			expectedStatus: http.StatusOK,
			expectedOwner:  "user-2",
		},
		{
			name:           "wrong signature",
			secret:         testSecret,
			header:         "Bearer " + signToken(t, "other-secret", "user-1"),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			secret:         testSecret,
			cookie:         "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "expired token",
			secret: testSecret,
			header: "Bearer " + signClaims(t, testSecret, jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "token without subject",
			secret:         testSecret,
			header:         "Bearer " + signClaims(t, testSecret, jwt.RegisteredClaims{}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unsupported scheme",
			secret:         testSecret,
			header:         "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no secret configured",
			secret:         "",
			header:         "Bearer " + signToken(t, testSecret, "user-1"),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(IdentityMiddleware(tt.secret))
			router.GET("/whoami", func(c *gin.Context) {
				c.String(http.StatusOK, IdentityFrom(c).OwnerID)
			})

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedOwner, w.Body.String())
			}
		})
	}
}

func TestIdentityFrom_DefaultsToAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.True(t, IdentityFrom(c).IsAnonymous())
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestLogger(zerolog.New(&buf)))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		requestID := w.Header().Get(RequestIDHeader)
		assert.Len(t, requestID, 36)
		assert.Contains(t, buf.String(), requestID)
		assert.Contains(t, buf.String(), `"status":200`)
		assert.Contains(t, buf.String(), `"path":"/ping"`)
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
		assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	})
}
