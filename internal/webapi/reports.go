package webapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/stockpilot/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerReportRoutes() {
	g := s.echo.Group("/api/reports")
	g.GET("/daily-orders", s.exportDailyOrders)
	g.GET("/supplier-stats", s.exportSupplierStats)
	g.GET("/catalog", s.exportCatalog)
	g.GET("/reorder", s.exportReorder)
}

func sendWorkbook(c echo.Context, name string, buf *bytes.Buffer) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(name)))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) reportDay(c echo.Context) (time.Time, string, error) {
	day := c.QueryParam("day")
	if day == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), "", nil
	}
	t, err := dateparse.ParseIn(day, time.Local)
	if err != nil {
		return time.Time{}, day, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), day, nil
}

func (s *Server) exportDailyOrders(c echo.Context) error {
	dayStart, raw, err := s.reportDay(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DAY", "Unable to parse day", raw)
	}
	orders, err := s.catalog.OrdersForDay(c.Request().Context(), raw)
	if err != nil {
		return failFor(c, err, "Failed to load orders")
	}
	var buf bytes.Buffer
	if err := report.DailyOrders(&buf, dayStart, orders); err != nil {
		return failFor(c, err, "Failed to build workbook")
	}
	return sendWorkbook(c, fmt.Sprintf("orders-%s.xlsx", dayStart.Format("2006-01-02")), &buf)
}

func (s *Server) exportSupplierStats(c echo.Context) error {
	_, raw, err := s.reportDay(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DAY", "Unable to parse day", raw)
	}
	orders, err := s.catalog.OrdersForDay(c.Request().Context(), raw)
	if err != nil {
		return failFor(c, err, "Failed to load orders")
	}
	var buf bytes.Buffer
	if err := report.SupplierStats(&buf, orders); err != nil {
		return failFor(c, err, "Failed to build workbook")
	}
	return sendWorkbook(c, "supplier-stats.xlsx", &buf)
}

func (s *Server) exportCatalog(c echo.Context) error {
	products, err := s.catalog.Products()
	if err != nil {
		return failFor(c, err, "Failed to load products")
	}
	var buf bytes.Buffer
	if err := report.ProductCatalog(&buf, products); err != nil {
		return failFor(c, err, "Failed to build workbook")
	}
	return sendWorkbook(c, "catalog.xlsx", &buf)
}

func (s *Server) exportReorder(c echo.Context) error {
	_, raw, err := s.reportDay(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DAY", "Unable to parse day", raw)
	}
	orders, err := s.catalog.OrdersForDay(c.Request().Context(), raw)
	if err != nil {
		return failFor(c, err, "Failed to load orders")
	}
	var buf bytes.Buffer
	if err := report.SupplierReorder(&buf, orders); err != nil {
		return failFor(c, err, "Failed to build workbook")
	}
	return sendWorkbook(c, "reorder.xlsx", &buf)
}
