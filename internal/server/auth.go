package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/domain"
)

const (
	profileKey = "profile"
	tokenKey   = "token"
)

type (
	// LoginRequest is the body of POST /auth/login.
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// LoginResponse carries the bearer token for later requests.
	LoginResponse struct {
		Token     string          `json:"token"`
		ExpiresAt time.Time       `json:"expires_at"`
		Profile   *domain.Profile `json:"profile"`
	}
)

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func (s *Server) authenticate(c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		s.fail(c, domain.ErrUnauthorized)
		return
	}
	p, err := s.svc.Auth.Current(c.Request.Context(), token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(profileKey, p)
	c.Set(tokenKey, token)
	c.Next()
}

// requireRole lets through profiles holding one of roles. Admins always
// pass, so requireRole() is admin-only.
func (s *Server) requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Require(profile(c), roles...); err != nil {
			s.fail(c, err)
			return
		}
		c.Next()
	}
}

func profile(c *gin.Context) *domain.Profile {
	p, _ := c.Get(profileKey)
	prof, _ := p.(*domain.Profile)
	return prof
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bind(c, &req) {
		return
	}
	token, p, err := s.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: s.now().Add(s.svc.Auth.TokenTTL()).UTC(),
		Profile:   p,
	})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.svc.Auth.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, profile(c))
}
