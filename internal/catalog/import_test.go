package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/stockpilot/internal/domain"
)

func TestImportCSV(t *testing.T) {
	svc := newTestService(t)

	csv := strings.Join([]string{
		"商品编码,商品名称,供应商,成本,单价,尺码,备注",
		"A1,shirt,S1,80,100,M,",
		"B2,pants,S2,60,90,L,new",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Equal(t, "pants", products["B2_S2"].Name)
}

func TestImportCSVBadPayload(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestImportCSVMissingColumns(t *testing.T) {
	svc := newTestService(t)

	csv := strings.Join([]string{
		"商品编码,商品名称",
		"A1,shirt",
		"B2,pants",
	}, "\n")

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)

	// nothing is persisted on a header mismatch
	products, err := svc.Products()
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestImportExcel(t *testing.T) {
	svc := newTestService(t)

	f := excelize.NewFile()
	header := []string{ColCode, ColName, ColSupplier, ColCost, ColPrice, ColSize, ColRemark}
	for i, h := range header {
		f.SetCellValue("Sheet1", excelize.ToAlphaString(i)+"1", h)
	}
	data := [][]string{
		{"A1", "shirt", "S1", "80", "100", "M", ""},
		{"B2", "pants", "S2", "60", "90", "L", "new"},
	}
	for r, row := range data {
		for c, v := range row {
			axis := fmt.Sprintf("%s%d", excelize.ToAlphaString(c), r+2)
			f.SetCellValue("Sheet1", axis, v)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := svc.ImportExcel(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Equal(t, "shirt", products["A1_S1"].Name)
	assert.Equal(t, "S2", products["B2_S2"].Supplier)
}

func TestImportExcelMissingColumn(t *testing.T) {
	svc := newTestService(t)

	f := excelize.NewFile()
	// header lacks most required columns
	f.SetCellValue("Sheet1", "A1", ColCode)
	f.SetCellValue("Sheet1", "B1", ColName)
	f.SetCellValue("Sheet1", "A2", "A1")
	f.SetCellValue("Sheet1", "B2", "shirt")

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := svc.ImportExcel(context.Background(), &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}
