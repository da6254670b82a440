package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
)

// envelopeFunc wraps one page of items the way the backend does for a
// resource. A nil envelopeFunc serves every item as a bare array.
type envelopeFunc func(items any, page, limit, total int) gin.H

func usersEnvelope(items any, _, _, total int) gin.H {
	return gin.H{"users": items, "count": total}
}

func missionsEnvelope(items any, page, limit, total int) gin.H {
	return gin.H{
		"success":  true,
		"missions": items,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": totalPages(total, limit),
		},
	}
}

func protocolsEnvelope(items any, page, limit, total int) gin.H {
	return gin.H{
		"success":    true,
		"data":       items,
		"pagination": gin.H{"page": page, "limit": limit, "total": total},
	}
}

func mentorsEnvelope(items any, page, limit, total int) gin.H {
	return gin.H{
		"success":    true,
		"mentorData": items,
		"pagination": gin.H{
			"page":       strconv.Itoa(page),
			"limit":      strconv.Itoa(limit),
			"total":      total,
			"totalPages": totalPages(total, limit),
		},
	}
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// resourceRoutes serves the CRUD routes of one entity kind
type resourceRoutes[T console.Entity] struct {
	table     *table[T]
	entityKey string
	notFound  string
	envelope  envelopeFunc
	creatable bool
	// update and remove override the plain table operations.
	update func(id string, v T) (T, error)
	remove func(id string) error
}

func (rr resourceRoutes[T]) register(g *gin.RouterGroup) {
	g.GET("", rr.list)
	g.GET("/:id", rr.get)
	g.PUT("/:id", rr.put)
	g.DELETE("/:id", rr.delete)
	if rr.creatable {
		g.POST("", rr.create)
	}
}

func (rr resourceRoutes[T]) list(c *gin.Context) {
	if rr.envelope == nil {
		c.JSON(http.StatusOK, rr.table.all())
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	items, total := rr.table.page(page, limit)
	c.JSON(http.StatusOK, rr.envelope(items, page, limit, total))
}

func (rr resourceRoutes[T]) get(c *gin.Context) {
	v, ok := rr.table.get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, rr.notFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, rr.entityKey: v})
}

func (rr resourceRoutes[T]) create(c *gin.Context) {
	var v T
	if err := c.ShouldBindJSON(&v); err != nil {
		failError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := v.Validate(console.OperationCreate); err != nil {
		failError(c, http.StatusBadRequest, err.Error())
		return
	}

	created := rr.table.insert(v)
	c.JSON(http.StatusCreated, gin.H{"success": true, rr.entityKey: created})
}

func (rr resourceRoutes[T]) put(c *gin.Context) {
	var v T
	if err := c.ShouldBindJSON(&v); err != nil {
		failError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := v.Validate(console.OperationUpdate); err != nil {
		failError(c, http.StatusBadRequest, err.Error())
		return
	}

	update := rr.table.replace
	if rr.update != nil {
		update = rr.update
	}
	updated, err := update(c.Param("id"), v)
	if errors.Is(err, errNotFound) {
		fail(c, http.StatusNotFound, rr.notFound)
		return
	}
	if err != nil {
		failError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, rr.entityKey: updated})
}

func (rr resourceRoutes[T]) delete(c *gin.Context) {
	remove := rr.table.remove
	if rr.remove != nil {
		remove = rr.remove
	}
	if err := remove(c.Param("id")); err != nil {
		fail(c, http.StatusNotFound, rr.notFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Deleted successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.throttle.allow(c.ClientIP()) {
		c.Header("Retry-After", strconv.Itoa(int(s.throttle.retryAfter().Seconds())+1))
		fail(c, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.repo.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info("login rejected", log.String("email", req.Email))
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue token", log.Error(err))
		failError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
}

func (s *Server) handleRegister(c *gin.Context) {
	var user console.User
	if err := c.ShouldBindJSON(&user); err != nil {
		failError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := user.Validate(console.OperationCreate); err != nil {
		failError(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.repo.CreateUser(user)
	if errors.Is(err, errDuplicate) {
		failError(c, http.StatusConflict, "User already exists")
		return
	}
	if err != nil {
		failError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"user": created}})
}

func (s *Server) handleLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (s *Server) handleProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": currentUser(c)})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// fail writes the flat error envelope used by most backend routes.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// failError writes the structured error envelope used by validation and
// conflict responses.
func failError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": gin.H{"message": message}})
}
