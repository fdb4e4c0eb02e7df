package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/imaging"
)

// Table column headers. The import format keeps the original Chinese
// spreadsheet headers so existing files keep working.
const (
	ColCode     = "商品编码"
	ColName     = "商品名称"
	ColSupplier = "供应商"
	ColCost     = "成本"
	ColPrice    = "单价"
	ColSize     = "尺码"
	ColRemark   = "备注"
)

var requiredColumns = []string{ColCode, ColName, ColSupplier, ColCost, ColPrice, ColSize}

// Row is one imported table row keyed by column header.
type Row map[string]string

// ImportResult summarizes a table import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportTable upserts one ProductRecord per row at (code, supplier) and
// stages a placeholder image for rows that have none yet. The first row
// missing any required column aborts the whole import (header
// mismatch); later rows with a blank code are skipped, not fatal.
func (s *Service) ImportTable(ctx context.Context, rows []Row) (ImportResult, error) {
	var result ImportResult
	if len(rows) == 0 {
		return result, nil
	}
	for _, col := range requiredColumns {
		if _, ok := rows[0][col]; !ok {
			return result, errors.Wrapf(domain.ErrSchemaMismatch, "missing column %q", col)
		}
	}

	products, err := s.records.LoadProducts()
	if err != nil {
		return result, err
	}

	now := time.Now()
	for _, row := range rows {
		code := cast.ToString(row[ColCode])
		if code == "" {
			result.Skipped++
			continue
		}
		product := domain.Product{
			Code:      code,
			Supplier:  row[ColSupplier],
			Name:      row[ColName],
			Cost:      row[ColCost],
			Price:     row[ColPrice],
			Size:      row[ColSize],
			Remark:    row[ColRemark],
			Timestamp: now,
		}
		products[product.Key().String()] = product
		result.Imported++

		if err := s.stagePlaceholder(ctx, product.Key()); err != nil {
			zap.L().Warn("placeholder staging failed",
				zap.String("key", product.Key().String()), zap.Error(err))
		}
	}

	if err := s.records.SaveProducts(products); err != nil {
		return result, err
	}
	s.publishChanged("products")
	return result, nil
}

// stagePlaceholder writes the blank image for a key that has no blob
// yet, so the imported product shows up in the grid immediately.
func (s *Service) stagePlaceholder(ctx context.Context, key domain.ItemKey) error {
	_, err := s.blobs.Get(ctx, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.blobs.Put(ctx, domain.ImageBlob{
		Code:      key.Code,
		Supplier:  key.Supplier,
		Format:    "jpeg",
		Payload:   imaging.Placeholder(),
		Timestamp: time.Now(),
	})
}

// ImportExcel reads the first sheet of an xlsx workbook and feeds it to
// ImportTable. The header row supplies the column names.
func (s *Service) ImportExcel(ctx context.Context, r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "open workbook")
	}
	sheet := f.GetSheetName(1)
	raw := f.GetRows(sheet)
	if len(raw) < 2 {
		return ImportResult{}, errors.Wrap(domain.ErrSchemaMismatch, "workbook has no data rows")
	}

	header := raw[0]
	rows := make([]Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return s.ImportTable(ctx, rows)
}

// csvProduct mirrors the spreadsheet layout for CSV imports.
type csvProduct struct {
	Code     string `csv:"商品编码"`
	Name     string `csv:"商品名称"`
	Supplier string `csv:"供应商"`
	Cost     string `csv:"成本"`
	Price    string `csv:"单价"`
	Size     string `csv:"尺码"`
	Remark   string `csv:"备注"`
}

// ImportCSV accepts the same table as a CSV file. The header row is
// checked for the required columns before any row is decoded, since the
// struct decoder fills absent columns with blanks instead of failing.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, errors.Wrap(domain.ErrIO, err.Error())
	}
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return ImportResult{}, errors.Wrap(domain.ErrSchemaMismatch, err.Error())
	}
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return ImportResult{}, errors.Wrapf(domain.ErrSchemaMismatch, "missing column %q", col)
		}
	}

	var records []csvProduct
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return ImportResult{}, errors.Wrap(domain.ErrSchemaMismatch, err.Error())
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{
			ColCode:     rec.Code,
			ColName:     rec.Name,
			ColSupplier: rec.Supplier,
			ColCost:     rec.Cost,
			ColPrice:    rec.Price,
			ColSize:     rec.Size,
			ColRemark:   rec.Remark,
		})
	}
	return s.ImportTable(ctx, rows)
}

// priceValue parses a free-form price field for ordering; unparsable
// values sort first, like an empty price.
func priceValue(s string) float64 {
	return cast.ToFloat64(s)
}
