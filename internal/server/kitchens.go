package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/domain"
)

type (
	// KitchenRequest is the body of POST /kitchens.
	KitchenRequest struct {
		Name     string               `json:"name"`
		Location string               `json:"location"`
		Status   domain.KitchenStatus `json:"status"`
	}

	// StatusRequest is the body of PUT /kitchens/:id/status.
	StatusRequest struct {
		Status domain.KitchenStatus `json:"status"`
	}
)

func (s *Server) listKitchens(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, &domain.ValidationError{Field: "page", Reason: "must be an integer"})
			return
		}
		page = n
	}
	res, err := s.svc.Kitchens.List(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) kitchenStats(c *gin.Context) {
	stats, err := s.svc.Kitchens.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) createKitchen(c *gin.Context) {
	var req KitchenRequest
	if !s.bind(c, &req) {
		return
	}
	k, err := s.svc.Kitchens.Create(c.Request.Context(), req.Name, req.Location, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, k)
}

func (s *Server) getKitchen(c *gin.Context) {
	k, err := s.svc.Kitchens.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *Server) setKitchenStatus(c *gin.Context) {
	var req StatusRequest
	if !s.bind(c, &req) {
		return
	}
	k, err := s.svc.Kitchens.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}
