package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/inventory"
)

func (s *Server) listInventory(c *gin.Context) {
	var f inventory.Filter
	if !s.bindQuery(c, &f) {
		return
	}
	items, err := s.svc.Inventory.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) inventorySummary(c *gin.Context) {
	var f inventory.Filter
	if !s.bindQuery(c, &f) {
		return
	}
	sum, err := s.svc.Inventory.Summary(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) addInventory(c *gin.Context) {
	var item domain.InventoryItem
	if !s.bind(c, &item) {
		return
	}
	created, err := s.svc.Inventory.Add(c.Request.Context(), item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getInventory(c *gin.Context) {
	item, err := s.svc.Inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inventory.Item{InventoryItem: *item, Status: inventory.StockStatus(*item)})
}

func (s *Server) updateInventory(c *gin.Context) {
	var item domain.InventoryItem
	if !s.bind(c, &item) {
		return
	}
	updated, err := s.svc.Inventory.Update(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteInventory(c *gin.Context) {
	if err := s.svc.Inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
