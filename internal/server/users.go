package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/domain"
)

type (
	// CreateUserRequest is the body of POST /users.
	CreateUserRequest struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     domain.Role `json:"role"`
	}

	// PasswordRequest is the body of PUT /users/password.
	PasswordRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
)

func (s *Server) listUsers(c *gin.Context) {
	profiles, err := s.svc.Auth.Profiles(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.svc.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateUser(c *gin.Context) {
	var req auth.ProfileUpdate
	if !s.bind(c, &req) {
		return
	}
	p, err := s.svc.Auth.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) setPassword(c *gin.Context) {
	var req PasswordRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.svc.Auth.SetPassword(c.Request.Context(), req.Email, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
