package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/stockpilot/internal/domain"
)

func (s *Server) registerOrderRoutes() {
	g := s.echo.Group("/api/orders")
	g.GET("", s.listOrders)
	g.POST("", s.saveOrder)
	g.DELETE("/:id", s.deleteOrder)
	g.PATCH("/:id", s.updateOrderField)
	g.DELETE("", s.clearOrdersForDay)
}

func (s *Server) listOrders(c echo.Context) error {
	if day := c.QueryParam("day"); day != "" {
		orders, err := s.catalog.OrdersForDay(c.Request().Context(), day)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DAY", "Unable to parse day", err.Error())
		}
		return ok(c, orders)
	}
	orders, err := s.catalog.ListOrders(c.Request().Context())
	if err != nil {
		return failFor(c, err, "Failed to list orders")
	}
	return ok(c, orders)
}

func (s *Server) saveOrder(c echo.Context) error {
	var order domain.Order
	if err := c.Bind(&order); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", nil)
	}
	if order.Code == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Order code is required", nil)
	}
	saved, err := s.catalog.SaveOrder(c.Request().Context(), order)
	if err != nil {
		return failFor(c, err, "Failed to save order")
	}
	return ok(c, saved)
}

func (s *Server) deleteOrder(c echo.Context) error {
	if err := s.catalog.DeleteOrder(c.Request().Context(), c.Param("id")); err != nil {
		return failFor(c, err, "Failed to delete order")
	}
	return ok(c, map[string]string{"id": c.Param("id")})
}

type orderFieldPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) updateOrderField(c echo.Context) error {
	var payload orderFieldPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse field update", nil)
	}
	order, err := s.catalog.UpdateOrderField(c.Request().Context(), c.Param("id"), payload.Field, payload.Value)
	if err != nil {
		return failFor(c, err, "Failed to update order")
	}
	return ok(c, order)
}

func (s *Server) clearOrdersForDay(c echo.Context) error {
	day := c.QueryParam("day")
	removed, err := s.catalog.ClearOrdersForDay(c.Request().Context(), day)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DAY", "Unable to clear orders", err.Error())
	}
	return ok(c, map[string]int{"removed": removed})
}
