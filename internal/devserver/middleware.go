package devserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
)

const userContextKey = "devserver.user"

// requireAuth rejects requests without a valid bearer token of an existing
// user with 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			fail(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		claims, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			fail(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, ok := s.repo.Users.get(claims.UserID)
		if !ok {
			fail(c, http.StatusUnauthorized, "User no longer exists")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// requireRole rejects authenticated users without role with 403.
func (s *Server) requireRole(role console.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != role {
			fail(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) console.User {
	v, _ := c.Get(userContextKey)
	user, _ := v.(console.User)
	return user
}

// observe counts and logs every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		s.logger.Debug("request served",
			log.String(log.FieldMethod, c.Request.Method),
			log.String(log.FieldPath, c.Request.URL.Path),
			log.Int(log.FieldStatusCode, status),
			log.Duration(log.FieldDuration, time.Since(start)),
		)
	}
}
