package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/stockpilot/internal/syncbridge"
)

func (s *Server) registerSyncRoutes() {
	g := s.echo.Group("/api/sync")
	g.POST("/apply", s.applySnapshot)
	g.POST("/push", s.pushNow)
}

// applySnapshot is the receiving end of a peer push: the remote
// snapshot replaces both local collections.
func (s *Server) applySnapshot(c echo.Context) error {
	var snapshot syncbridge.Snapshot
	if err := c.Bind(&snapshot); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse snapshot", nil)
	}
	if err := s.bridge.ApplyRemote(snapshot); err != nil {
		return failFor(c, err, "Failed to apply snapshot")
	}
	return ok(c, map[string]int{
		"products": len(snapshot.Products),
		"orders":   len(snapshot.Orders),
	})
}

func (s *Server) pushNow(c echo.Context) error {
	if err := s.bridge.PushNow(); err != nil {
		return failFor(c, err, "Failed to push snapshot")
	}
	return ok(c, nil)
}
