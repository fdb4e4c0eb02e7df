// Package webapi exposes the catalog operations over a local HTTP API.
// Handlers are a thin layer over catalog.Service; all state lives below.
package webapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/config"
	"github.com/talkincode/stockpilot/internal/catalog"
	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/syncbridge"
)

type Server struct {
	cfg     *config.AppConfig
	catalog *catalog.Service
	bridge  *syncbridge.Bridge
	echo    *echo.Echo
}

func NewServer(cfg *config.AppConfig, svc *catalog.Service, bridge *syncbridge.Bridge) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{cfg: cfg, catalog: svc, bridge: bridge, echo: e}
	s.registerCatalogRoutes()
	s.registerOrderRoutes()
	s.registerReportRoutes()
	s.registerSyncRoutes()
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("webapi listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, apiResponse{Success: true, Data: data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, apiResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: message, Detail: detail},
	})
}

// failFor maps the shared error taxonomy onto HTTP statuses.
func failFor(c echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", message, err.Error())
	case errors.Is(err, domain.ErrSchemaMismatch):
		return fail(c, http.StatusBadRequest, "SCHEMA_MISMATCH", message, err.Error())
	case errors.Is(err, domain.ErrImageDecode):
		return fail(c, http.StatusBadRequest, "IMAGE_DECODE", message, err.Error())
	case errors.Is(err, domain.ErrStorageFull):
		return fail(c, http.StatusInsufficientStorage, "STORAGE_FULL", message, err.Error())
	default:
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", message, err.Error())
	}
}
