package server

import (
	"context"
	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	log "github.com/sirupsen/logrus"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const identityKey = "identity"

// multipartOverhead pads body limits for form boundaries and other fields.
const multipartOverhead int64 = 64 << 10

type authenticator interface {
	CurrentUser(ctx context.Context, token string) (*auth.Identity, error)
}

type adminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Authenticate resolves the bearer token, if any, into an identity. Requests
// without a token pass through anonymously; a bad token is rejected.
func Authenticate(authenticator authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortWithError(c, apperrors.New(apperrors.KindUnauthenticated, "invalid authorization header"))
			return
		}

		identity, err := authenticator.CurrentUser(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentIdentity(c) == nil {
			abortWithError(c, apperrors.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// RequireAdmin hides admin routes from regular users. Services check the
// role again on every mutating call.
func RequireAdmin(admins adminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil {
			abortWithError(c, apperrors.ErrUnauthenticated)
			return
		}
		isAdmin, err := admins.IsAdmin(c.Request.Context(), identity.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !isAdmin {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *auth.Identity {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

func RateLimiter(requestsPerSecond uint) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: requestsPerSecond,
	})

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		KeyFunc: func(c *gin.Context) string {
			if identity := currentIdentity(c); identity != nil {
				return "user: " + identity.UserID
			}
			return "ip: " + c.ClientIP()
		},
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(info.ResetTime).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "Too many requests. Please try again later.",
			})
		},
	})
}

// SizeLimit caps the request body; reading past it fails with
// *http.MaxBytesError.
func SizeLimit(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes+multipartOverhead)
		c.Next()
	}
}

func SafeHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}

// RequestMetrics records request durations and logs each request at debug
// level.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}
