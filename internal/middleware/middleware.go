package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by the middleware in this package.
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyUserName  = "user_name"
)

const headerRequestID = "X-Request-ID"

// Logger 日志中间件. Requests are logged once they finish, at a level
// chosen by status class; the matched route is logged instead of the raw
// path when there is one.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString(KeyRequestID)),
		}
		if q := c.Request.URL.RawQuery; q != "" && !strings.Contains(q, "token=") {
			fields = append(fields, zap.String("query", q))
		}
		if userID := c.GetString(KeyUserID); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Headers":  "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With, " + headerRequestID,
	"Access-Control-Allow-Methods":  "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Expose-Headers": "Content-Disposition, " + headerRequestID,
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range corsHeaders {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID keeps the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// JWTClaims JWT claims
type JWTClaims struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

var (
	errNoToken      = errors.New("no bearer token")
	errBadToken     = errors.New("invalid or expired token")
	errTokenNoOwner = errors.New("token has no user id")
)

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter because EventSource cannot set headers.
func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && scheme == "Bearer" {
		return token
	}
	return c.Query("token")
}

// ParseToken validates an HS256 token signed with secret and returns its
// claims. A token without a user id is rejected.
func ParseToken(secret, raw string) (*JWTClaims, error) {
	if raw == "" {
		return nil, errNoToken
	}
	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errBadToken
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errTokenNoOwner
	}
	return claims, nil
}

var authFailures = map[error]struct {
	code    int
	message string
}{
	errNoToken:      {40100, "Authorization is required"},
	errBadToken:     {40102, "Invalid or expired token"},
	errTokenNoOwner: {40103, "Invalid token claims"},
}

// JWTAuth JWT认证中间件. Every project and part is scoped to the token's
// user id.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(secret, bearerToken(c))
		if err != nil {
			failure := authFailures[err]
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    failure.code,
				"message": failure.message,
			})
			return
		}
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserName, claims.Name)
		c.Next()
	}
}
