package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// DeviceClaims is the token presented by a registered badge reader. PostID
// is optional; a reader bolted to one post carries it so scans can omit the
// post entirely.
type DeviceClaims struct {
	DeviceID string `json:"deviceId"`
	PostID   string `json:"postId,omitempty"`
	jwt.RegisteredClaims
}

// DeviceAuthMiddleware validates reader tokens on the RFID endpoints.
type DeviceAuthMiddleware struct {
	jwtSecret string
}

func NewDeviceAuthMiddleware(jwtSecret string) *DeviceAuthMiddleware {
	return &DeviceAuthMiddleware{jwtSecret: jwtSecret}
}

// RequireDevice validates the device JWT and stores its claims in the
// request context.
func (m *DeviceAuthMiddleware) RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Device token is required",
			})
			c.Abort()
			return
		}

		claims, err := m.validateToken(token)
		if err != nil {
			logrus.WithError(err).Warn("Invalid device token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid device token",
			})
			c.Abort()
			return
		}

		c.Set("device_id", claims.DeviceID)
		if claims.PostID != "" {
			c.Set("device_post_id", claims.PostID)
		}

		c.Next()
	}
}

func (m *DeviceAuthMiddleware) extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func (m *DeviceAuthMiddleware) validateToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.DeviceID == "" {
		return nil, errors.New("token missing device id")
	}
	return claims, nil
}
