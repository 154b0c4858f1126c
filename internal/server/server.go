// Package server exposes the kitchen over HTTP: a JSON API for staff,
// inventory, preparation plans and recipes, plus a WebSocket relay that
// mirrors live cooking sessions to every viewer.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/engine"
	"github.com/hammamikhairi/kitchenops/internal/inventory"
	"github.com/hammamikhairi/kitchenops/internal/kitchen"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/prep"
	"github.com/hammamikhairi/kitchenops/internal/recipe"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ErrInvalidJSON is reported for request bodies that do not decode.
var ErrInvalidJSON = errors.New("invalid JSON request")

// Services are the domain services the API fronts.
type Services struct {
	Auth      *auth.Service
	Recipes   *recipe.Service
	Inventory *inventory.Service
	Plans     *prep.Service
	Kitchens  *kitchen.Service
	Engine    *engine.Engine
}

// Option configures the Server.
type Option func(*Server)

// WithCORSOrigins limits cross-origin requests to origins. "*" allows all,
// which is the default.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server implements the HTTP API.
type Server struct {
	svc     Services
	log     *logger.Logger
	origins []string
	now     func() time.Time

	mu      sync.Mutex
	sockets map[*socket]struct{}
}

// New creates the API server.
func New(svc Services, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		log:     log,
		origins: []string{"*"},
		now:     time.Now,
		sockets: make(map[*socket]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes configures and returns the HTTP router with every endpoint.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.log.Slog()
		}),
	))
	router.Use(s.cors)

	router.GET("/health", s.handleHealth)

	router.POST("/auth/login", s.login)

	api := router.Group("", s.authenticate)
	{
		api.POST("/auth/logout", s.logout)
		api.GET("/auth/me", s.me)

		api.GET("/recipes", s.listRecipes)
		api.POST("/recipes", s.requireRole(domain.RoleChef), s.createRecipe)
		api.GET("/recipes/:id", s.getRecipe)
		api.DELETE("/recipes/:id", s.requireRole(domain.RoleChef), s.deleteRecipe)
		api.PUT("/recipes/:id/steps/:number", s.requireRole(domain.RoleChef), s.saveStep)

		api.GET("/sessions", s.listSessions)
		api.POST("/recipes/:id/session", s.startSession)
		api.GET("/recipes/:id/session", s.getSession)
		api.POST("/recipes/:id/session/done", s.markStepDone)
		api.DELETE("/recipes/:id/session", s.stopSession)
		api.GET("/recipes/:id/ws", s.handleWebSocket)

		stock := s.requireRole(domain.RoleChef, domain.RoleSupervisor)
		api.GET("/inventory", s.listInventory)
		api.GET("/inventory/summary", s.inventorySummary)
		api.POST("/inventory", stock, s.addInventory)
		api.GET("/inventory/:id", s.getInventory)
		api.PUT("/inventory/:id", stock, s.updateInventory)
		api.DELETE("/inventory/:id", stock, s.deleteInventory)

		api.GET("/plans", s.listPlans)
		api.GET("/plans/today", s.todayPlans)
		api.GET("/plans/wastage", s.weeklyWastage)
		api.POST("/plans", stock, s.createPlan)
		api.GET("/plans/:id", s.getPlan)
		api.PUT("/plans/:id", stock, s.updatePlan)
		api.DELETE("/plans/:id", stock, s.deletePlan)
		api.POST("/plans/:id/advance", stock, s.advancePlan)
		api.POST("/plans/:id/outcome", stock, s.recordOutcome)

		sites := s.requireRole(domain.RoleSupervisor)
		api.GET("/kitchens", s.listKitchens)
		api.GET("/kitchens/stats", s.kitchenStats)
		api.POST("/kitchens", sites, s.createKitchen)
		api.GET("/kitchens/:id", s.getKitchen)
		api.PUT("/kitchens/:id/status", sites, s.setKitchenStatus)

		admin := s.requireRole()
		api.GET("/users", admin, s.listUsers)
		api.POST("/users", admin, s.createUser)
		api.PUT("/users/password", admin, s.setPassword)
		api.PUT("/users/:id", admin, s.updateUser)
	}

	return router
}

func (s *Server) cors(c *gin.Context) {
	origin := c.GetHeader("Origin")
	switch {
	case slices.Contains(s.origins, "*"):
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "" && slices.Contains(s.origins, origin):
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Add("Vary", "Origin")
	}
	c.Writer.Header().Set(
		"Access-Control-Allow-Methods",
		"GET, POST, PUT, DELETE, OPTIONS",
	)
	c.Writer.Header().Set(
		"Access-Control-Allow-Headers",
		"Content-Type, Authorization",
	)

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}

	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	sessions, err := s.svc.Engine.Sessions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": len(sessions),
		"time":     s.now().UTC(),
	})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrNoSteps), errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotActive):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

// bind decodes the JSON body into v, reporting failures as 400.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:  ErrInvalidJSON.Error() + ": " + err.Error(),
			Status: http.StatusBadRequest,
		})
		return false
	}
	return true
}

// bindQuery decodes query parameters into v, reporting failures as 400.
func (s *Server) bindQuery(c *gin.Context, v any) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return false
	}
	return true
}
