package auth

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/types"
)

// Context keys for player information
const (
	PlayerIDKey = "player_id"
	ClaimsKey   = "claims"
)

// Claims represents the JWT claims structure
type Claims struct {
	PlayerID string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds bridge authentication configuration
type JWTConfig struct {
	Secret      string
	TokenPrefix string
	SkipPaths   []string
}

// DefaultJWTConfig returns default JWT configuration
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:      secret,
		TokenPrefix: "Bearer",
		SkipPaths:   []string{"/health"},
	}
}

// JWTMiddleware protects the local bridge with an HMAC-signed token
func JWTMiddleware(config JWTConfig, logger zerolog.Logger) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		tokenString, ok := bearer(c, config.TokenPrefix)
		if !ok {
			logger.Warn().Str("path", c.Request.URL.Path).Msg("Missing or malformed Authorization header")
			abort(c, "Missing or malformed Authorization header")
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, stderrors.New("unexpected signing method")
			}
			return []byte(config.Secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warn().Err(err).Msg("Failed to parse JWT token")
			abort(c, "Invalid or expired token")
			return
		}

		claims := token.Claims.(*Claims)
		c.Set(PlayerIDKey, claims.PlayerID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// bearer extracts the token from the Authorization header, or the token
// query parameter for websocket upgrades
func bearer(c *gin.Context, prefix string) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query("token"); q != "" {
			return q, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != prefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		IsSuccess:  false,
		Error: types.ErrorDetail{
			Timestamp:    time.Now().Format(time.RFC3339),
			Path:         c.Request.URL.Path,
			ErrorMessage: msg,
		},
	})
}

// GetClaims extracts full claims from context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claimsObj, ok := claims.(*Claims)
	return claimsObj, ok
}

// GenerateToken signs a token for playerID valid for expiration
func GenerateToken(secret, playerID string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
