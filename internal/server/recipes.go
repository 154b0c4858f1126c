package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/recipe"
)

func (s *Server) listRecipes(c *gin.Context) {
	var (
		recipes []domain.RecipeSummary
		err     error
	)
	if q := c.Query("search"); q != "" {
		recipes, err = s.svc.Recipes.Search(c.Request.Context(), q)
	} else {
		recipes, err = s.svc.Recipes.List(c.Request.Context())
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (s *Server) createRecipe(c *gin.Context) {
	var draft recipe.Draft
	if !s.bind(c, &draft) {
		return
	}
	r, err := s.svc.Recipes.Create(c.Request.Context(), profile(c).ID, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) getRecipe(c *gin.Context) {
	r, err := s.svc.Recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) deleteRecipe(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	// A live session would keep ticking over steps that no longer exist.
	if err := s.svc.Engine.Stop(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotActive) {
		s.fail(c, err)
		return
	}
	if err := s.svc.Recipes.Delete(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) saveStep(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		s.fail(c, &domain.ValidationError{Field: "number", Reason: "must be an integer"})
		return
	}
	var draft recipe.StepDraft
	if !s.bind(c, &draft) {
		return
	}
	step, err := s.svc.Recipes.SaveStep(c.Request.Context(), c.Param("id"), number, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (s *Server) listSessions(c *gin.Context) {
	sessions, err := s.svc.Engine.Sessions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) startSession(c *gin.Context) {
	session, err := s.svc.Engine.Start(c.Request.Context(), c.Param("id"), profile(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.svc.Engine.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) markStepDone(c *gin.Context) {
	state, err := s.svc.Engine.MarkStepDone(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) stopSession(c *gin.Context) {
	if err := s.svc.Engine.Stop(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
