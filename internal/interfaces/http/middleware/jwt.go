package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/clubdeportivo/backend/internal/infrastructure/auth"
	"github.com/clubdeportivo/backend/internal/infrastructure/logger"
	"github.com/clubdeportivo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys and headers used to resolve the acting user
const (
	JWTClaimsKey    = "jwt_claims"
	ActingUserIDKey = "acting_user_id"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	HeaderUserID    = "X-User-ID"
)

// AuthConfig configures the acting-user middleware
type AuthConfig struct {
	// Validator checks bearer tokens. When nil, Authorization headers are
	// ignored and only X-User-ID is consulted.
	Validator *auth.TokenValidator
	// Required rejects requests without a valid token with 401.
	Required bool
	// AllowHeaderFallback accepts X-User-ID when no token is present.
	// Ignored when Required is set.
	AllowHeaderFallback bool
	SkipPaths           []string
	Logger              *zap.Logger
}

// Authenticate resolves who is making the request. A valid bearer token
// wins; otherwise, unless tokens are required, the X-User-ID header is
// accepted. Requests without either proceed anonymously.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, hasToken := bearerToken(c)
		if hasToken && cfg.Validator != nil {
			claims, err := cfg.Validator.ValidateToken(token)
			if err != nil {
				abortUnauthorized(c, cfg.Logger, err)
				return
			}
			// ValidateToken guarantees a parseable user id
			userID, _ := claims.UserUUID()
			c.Set(JWTClaimsKey, claims)
			setActingUser(c, userID)
			c.Next()
			return
		}

		if cfg.Required {
			abortUnauthorized(c, cfg.Logger, auth.ErrInvalidToken)
			return
		}

		if raw := c.GetHeader(HeaderUserID); raw != "" && cfg.AllowHeaderFallback {
			userID, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeBadRequest, HeaderUserID+" must be a UUID", c.GetString(logger.GinRequestIDKey)))
				return
			}
			setActingUser(c, userID)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func setActingUser(c *gin.Context, userID uuid.UUID) {
	c.Set(ActingUserIDKey, userID)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), userID.String()))
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error) {
	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	case errors.Is(err, auth.ErrInvalidToken) && c.GetHeader(AuthHeaderKey) != "":
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	log.Debug("authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(logger.GinRequestIDKey)))
}

// GetJWTClaims returns the validated token claims, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Get(JWTClaimsKey)
	jwtClaims, _ := claims.(*auth.Claims)
	return jwtClaims
}

// GetActingUserID returns the resolved acting user, or nil for anonymous
// requests
func GetActingUserID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ActingUserIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
