package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// authMiddleware accepts either the shared secret or an HS256 token signed
// with it. The shared secret identifies callers by client IP, a token by its
// subject.
func authMiddleware(secret string, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()

	return func(c *gin.Context) {
		identity, err := authenticate(c.GetHeader("Authorization"), secret, c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Rejected request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.APIResponse{
				Success: false,
				Error:   "Unauthorized",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// authenticate resolves the caller identity from an Authorization header
func authenticate(header, secret, clientIP string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("no secret configured: %w", apperrors.ErrUnauthorized)
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", fmt.Errorf("missing bearer credential: %w", apperrors.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
		return clientIP, nil
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid bearer credential: %w", apperrors.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject: %w", apperrors.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// identityOf returns the identity resolved by authMiddleware
func identityOf(c *gin.Context) string {
	if identity := c.GetString(identityKey); identity != "" {
		return identity
	}
	return c.ClientIP()
}
