package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/prep"
)

// OutcomeRequest is the body of POST /plans/:id/outcome.
type OutcomeRequest struct {
	ActualPlates int     `json:"actual_plates"`
	Wastage      float64 `json:"wastage"`
	Reason       string  `json:"reason"`
}

func (s *Server) listPlans(c *gin.Context) {
	var f prep.Filter
	if !s.bindQuery(c, &f) {
		return
	}
	plans, err := s.svc.Plans.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (s *Server) todayPlans(c *gin.Context) {
	sum, err := s.svc.Plans.Today(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) weeklyWastage(c *gin.Context) {
	days, err := s.svc.Plans.WeeklyWastage(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (s *Server) createPlan(c *gin.Context) {
	var p domain.PreparationPlan
	if !s.bind(c, &p) {
		return
	}
	created, err := s.svc.Plans.Create(c.Request.Context(), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getPlan(c *gin.Context) {
	p, err := s.svc.Plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updatePlan(c *gin.Context) {
	var p domain.PreparationPlan
	if !s.bind(c, &p) {
		return
	}
	updated, err := s.svc.Plans.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deletePlan(c *gin.Context) {
	if err := s.svc.Plans.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) advancePlan(c *gin.Context) {
	p, err := s.svc.Plans.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) recordOutcome(c *gin.Context) {
	var req OutcomeRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.svc.Plans.RecordOutcome(c.Request.Context(), c.Param("id"), req.ActualPlates, req.Wastage, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
