package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubdeportivo/backend/internal/infrastructure/auth"
	"github.com/clubdeportivo/backend/internal/infrastructure/config"
	"github.com/clubdeportivo/backend/internal/infrastructure/logger"
	"github.com/clubdeportivo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func signToken(t *testing.T, userID string, expiresIn time.Duration) string {
	t.Helper()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "club-identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type authResult struct {
	status  int
	code    string
	actor   *uuid.UUID
	ctxUser string
}

func runAuth(t *testing.T, cfg AuthConfig, setup func(*http.Request)) authResult {
	t.Helper()
	var res authResult

	router := gin.New()
	router.Use(Authenticate(cfg))
	router.GET("/test", func(c *gin.Context) {
		res.actor = GetActingUserID(c)
		res.ctxUser = logger.GetUserID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	res.status = w.Code
	if w.Code != http.StatusOK {
		var body dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		res.code = body.Error.Code
	}
	return res
}

func TestAuthenticate(t *testing.T) {
	validator := auth.NewTokenValidator(config.JWTConfig{Secret: testSecret, Issuer: "club-identity"})
	userID := uuid.New()

	t.Run("valid token sets the acting user", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator}, func(r *http.Request) {
			r.Header.Set(AuthHeaderKey, BearerPrefix+signToken(t, userID.String(), time.Hour))
		})

		assert.Equal(t, http.StatusOK, res.status)
		require.NotNil(t, res.actor)
		assert.Equal(t, userID, *res.actor)
		assert.Equal(t, userID.String(), res.ctxUser)
	})

	t.Run("token wins over header", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator, AllowHeaderFallback: true}, func(r *http.Request) {
			r.Header.Set(AuthHeaderKey, BearerPrefix+signToken(t, userID.String(), time.Hour))
			r.Header.Set(HeaderUserID, uuid.NewString())
		})

		require.NotNil(t, res.actor)
		assert.Equal(t, userID, *res.actor)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator}, func(r *http.Request) {
			r.Header.Set(AuthHeaderKey, BearerPrefix+signToken(t, userID.String(), -time.Hour))
		})

		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, dto.ErrCodeTokenExpired, res.code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator}, func(r *http.Request) {
			r.Header.Set(AuthHeaderKey, BearerPrefix+"not.a.jwt")
		})

		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, dto.ErrCodeTokenInvalid, res.code)
	})

	t.Run("missing token when required", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator, Required: true, AllowHeaderFallback: true}, func(r *http.Request) {
			r.Header.Set(HeaderUserID, userID.String())
		})

		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, dto.ErrCodeUnauthorized, res.code)
	})

	t.Run("header fallback", func(t *testing.T) {
		res := runAuth(t, AuthConfig{AllowHeaderFallback: true}, func(r *http.Request) {
			r.Header.Set(HeaderUserID, userID.String())
		})

		assert.Equal(t, http.StatusOK, res.status)
		require.NotNil(t, res.actor)
		assert.Equal(t, userID, *res.actor)
	})

	t.Run("header ignored without fallback", func(t *testing.T) {
		res := runAuth(t, AuthConfig{}, func(r *http.Request) {
			r.Header.Set(HeaderUserID, userID.String())
		})

		assert.Equal(t, http.StatusOK, res.status)
		assert.Nil(t, res.actor)
	})

	t.Run("malformed header", func(t *testing.T) {
		res := runAuth(t, AuthConfig{AllowHeaderFallback: true}, func(r *http.Request) {
			r.Header.Set(HeaderUserID, "admin")
		})

		assert.Equal(t, http.StatusBadRequest, res.status)
		assert.Equal(t, dto.ErrCodeBadRequest, res.code)
	})

	t.Run("anonymous request", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator}, nil)

		assert.Equal(t, http.StatusOK, res.status)
		assert.Nil(t, res.actor)
		assert.Empty(t, res.ctxUser)
	})

	t.Run("skip paths bypass required auth", func(t *testing.T) {
		res := runAuth(t, AuthConfig{Validator: validator, Required: true, SkipPaths: []string{"/test"}}, nil)
		assert.Equal(t, http.StatusOK, res.status)
	})
}
