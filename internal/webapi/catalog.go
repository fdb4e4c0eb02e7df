package webapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/stockpilot/internal/catalog"
	"github.com/talkincode/stockpilot/internal/domain"
)

func (s *Server) registerCatalogRoutes() {
	g := s.echo.Group("/api/catalog")
	g.GET("/items", s.listItems)
	g.GET("/items/:code/variants", s.listVariants)
	g.GET("/images/:code/:supplier", s.getImage)
	g.POST("/images", s.uploadImages)
	g.POST("/images/match", s.matchFolder)
	g.POST("/import", s.importTable)
	g.POST("/selection", s.updateSelection)
	g.DELETE("/selection", s.deleteSelection)
	g.PUT("/selection", s.editSelection)
	g.DELETE("/all", s.clearCatalog)
	g.GET("/settings/grid-columns", s.getGridColumns)
	g.PUT("/settings/grid-columns", s.setGridColumns)
	g.GET("/settings/hide-price-customers", s.getHidePriceCustomers)
	g.PUT("/settings/hide-price-customers", s.setHidePriceCustomers)
}

func (s *Server) listItems(c echo.Context) error {
	groups, err := s.catalog.ListBySupplier(c.Request().Context())
	if err != nil {
		return failFor(c, err, "Failed to list catalog items")
	}
	return ok(c, groups)
}

func (s *Server) listVariants(c echo.Context) error {
	products, err := s.catalog.ProductsByCode(c.Param("code"))
	if err != nil {
		return failFor(c, err, "Failed to list product variants")
	}
	return ok(c, products)
}

func (s *Server) getImage(c echo.Context) error {
	key := domain.ItemKey{Code: c.Param("code"), Supplier: c.Param("supplier")}
	blob, err := s.catalog.Image(c.Request().Context(), key)
	if err != nil {
		return failFor(c, err, "Image not found")
	}
	return c.Blob(http.StatusOK, "image/jpeg", blob.Payload)
}

// readMultipartFiles collects every uploaded file part into memory.
func readMultipartFiles(c echo.Context) ([]catalog.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	var files []catalog.File
	for _, headers := range form.File {
		for _, fh := range headers {
			src, err := fh.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				return nil, err
			}
			files = append(files, catalog.File{Name: fh.Filename, Data: data})
		}
	}
	return files, nil
}

func (s *Server) uploadImages(c echo.Context) error {
	files, err := readMultipartFiles(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse upload", err.Error())
	}
	supplier := c.QueryParam("supplier")
	result := s.catalog.UploadImages(c.Request().Context(), files, supplier)
	return ok(c, result)
}

func (s *Server) matchFolder(c echo.Context) error {
	files, err := readMultipartFiles(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse upload", err.Error())
	}
	result, err := s.catalog.MatchFolder(c.Request().Context(), files)
	if err != nil {
		return failFor(c, err, "Folder match failed")
	}
	return ok(c, result)
}

func (s *Server) importTable(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing table file", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to open table file", err.Error())
	}
	defer src.Close()

	var result catalog.ImportResult
	if strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		result, err = s.catalog.ImportCSV(c.Request().Context(), src)
	} else {
		result, err = s.catalog.ImportExcel(c.Request().Context(), src)
	}
	if err != nil {
		return failFor(c, err, "Import failed")
	}
	return ok(c, result)
}

type selectionPayload struct {
	Code     string `json:"code"`
	Supplier string `json:"supplier"`
	Selected bool   `json:"selected"`
}

func (s *Server) updateSelection(c echo.Context) error {
	var payload selectionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse selection", nil)
	}
	key := domain.ItemKey{Code: payload.Code, Supplier: payload.Supplier}
	if key.IsZero() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Empty selection key", nil)
	}
	if payload.Selected {
		s.catalog.Select(key)
	} else {
		s.catalog.Deselect(key)
	}
	return ok(c, s.catalog.Selected())
}

func (s *Server) deleteSelection(c echo.Context) error {
	if err := s.catalog.DeleteSelection(c.Request().Context()); err != nil {
		return failFor(c, err, "Failed to delete selection")
	}
	return ok(c, nil)
}

func (s *Server) editSelection(c echo.Context) error {
	var patch catalog.Patch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse edit", nil)
	}
	result, err := s.catalog.EditSelection(c.Request().Context(), patch)
	if err != nil {
		return failFor(c, err, "Failed to edit selection")
	}
	return ok(c, result)
}

func (s *Server) clearCatalog(c echo.Context) error {
	if err := s.catalog.ClearCatalog(c.Request().Context()); err != nil {
		return failFor(c, err, "Failed to clear catalog")
	}
	return ok(c, nil)
}

func (s *Server) getGridColumns(c echo.Context) error {
	return ok(c, map[string]int{"columns": s.catalog.GridColumns()})
}

func (s *Server) setGridColumns(c echo.Context) error {
	var payload struct {
		Columns int `json:"columns"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse columns", nil)
	}
	if err := s.catalog.SetGridColumns(payload.Columns); err != nil {
		return failFor(c, err, "Failed to save grid columns")
	}
	return ok(c, map[string]int{"columns": s.catalog.GridColumns()})
}

func (s *Server) getHidePriceCustomers(c echo.Context) error {
	return ok(c, s.catalog.HidePriceCustomers())
}

func (s *Server) setHidePriceCustomers(c echo.Context) error {
	var names []string
	if err := c.Bind(&names); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse customer list", nil)
	}
	if err := s.catalog.SetHidePriceCustomers(names); err != nil {
		return failFor(c, err, "Failed to save customer list")
	}
	return ok(c, names)
}
