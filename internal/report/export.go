// Package report renders the catalog and order collections into xlsx
// workbooks for the operator: a daily order sheet, supplier statistics
// with ranked views, the full product catalog and a per-supplier
// reorder rollup.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/talkincode/stockpilot/internal/domain"
)

// Excel caps sheet names at 31 characters.
const maxSheetNameLen = 31

var dailyHeader = []string{
	"客户", "商品编码", "商品名称", "尺码", "单价", "成本",
	"数量", "金额", "利润", "供应商", "日期", "备注",
}

var dailyWidths = []float64{14, 14, 24, 10, 10, 10, 8, 12, 12, 14, 12, 20}

// money parses a free-form amount field; blanks and garbage count as zero.
func money(s string) float64 {
	return cast.ToFloat64(s)
}

// round keeps exported amounts as whole units, matching how the
// operators quote prices.
func round(v float64) int {
	return int(math.Round(v))
}

func sheetName(name string) string {
	runes := []rune(name)
	if len(runes) > maxSheetNameLen {
		runes = runes[:maxSheetNameLen]
	}
	return string(runes)
}

// uniqueSheetName reserves a sheet name, suffixing it when a supplier
// collides with a reserved sheet or with another supplier after the
// length cap truncates them to the same prefix.
func uniqueSheetName(name string, used map[string]bool) string {
	base := sheetName(name)
	candidate := base
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf("-%d", n)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetNameLen {
			runes = runes[:maxSheetNameLen-len(suffix)]
		}
		candidate = string(runes) + suffix
	}
	used[candidate] = true
	return candidate
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) {
	for i, v := range cells {
		axis := fmt.Sprintf("%s%d", excelize.ToAlphaString(i), row)
		f.SetCellValue(sheet, axis, v)
	}
}

func writeHeader(f *excelize.File, sheet string, header []string, widths []float64) {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	setRow(f, sheet, 1, cells)
	for i, w := range widths {
		col := excelize.ToAlphaString(i)
		f.SetColWidth(sheet, col, col, w)
	}
}

// DailyOrders writes one workbook sheet listing the given orders with
// computed amount and profit columns plus a totals row.
func DailyOrders(w io.Writer, day time.Time, orders []domain.Order) error {
	f := excelize.NewFile()
	sheet := sheetName(day.Format("2006-01-02"))
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, dailyHeader, dailyWidths)

	var totalQty, totalAmount, totalProfit int
	row := 2
	for _, o := range orders {
		amount := money(o.Price) * float64(o.Quantity)
		profit := (money(o.Price) - money(o.Cost)) * float64(o.Quantity)
		setRow(f, sheet, row, []interface{}{
			o.Customer, o.Code, o.Name, o.Size,
			round(money(o.Price)), round(money(o.Cost)),
			o.Quantity, round(amount), round(profit),
			o.Supplier, o.Timestamp.Format("2006-01-02"), o.Remark,
		})
		totalQty += o.Quantity
		totalAmount += round(amount)
		totalProfit += round(profit)
		row++
	}
	setRow(f, sheet, row, []interface{}{
		"合计", "", "", "", "", "", totalQty, totalAmount, totalProfit, "", "", "",
	})
	return errors.Wrap(f.Write(w), "write daily orders workbook")
}

// SupplierStat aggregates one supplier's orders.
type SupplierStat struct {
	Supplier string
	Quantity int
	Cost     float64
	Amount   float64
	Profit   float64
	Orders   []domain.Order
}

// ProfitRate is profit over amount; zero amount yields zero.
func (s SupplierStat) ProfitRate() float64 {
	if s.Amount == 0 {
		return 0
	}
	return s.Profit / s.Amount
}

func aggregateBySupplier(orders []domain.Order) []SupplierStat {
	bySupplier := make(map[string]*SupplierStat)
	for _, o := range orders {
		supplier := o.Supplier
		if supplier == "" {
			supplier = domain.UnclassifiedSupplier
		}
		stat, ok := bySupplier[supplier]
		if !ok {
			stat = &SupplierStat{Supplier: supplier}
			bySupplier[supplier] = stat
		}
		stat.Quantity += o.Quantity
		stat.Cost += money(o.Cost) * float64(o.Quantity)
		stat.Amount += money(o.Price) * float64(o.Quantity)
		stat.Profit += (money(o.Price) - money(o.Cost)) * float64(o.Quantity)
		stat.Orders = append(stat.Orders, o)
	}
	stats := make([]SupplierStat, 0, len(bySupplier))
	for _, stat := range bySupplier {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Supplier < stats[j].Supplier })
	return stats
}

var statsHeader = []string{"供应商", "数量", "成本", "金额", "利润", "利润率"}

func writeStatsSheet(f *excelize.File, sheet string, stats []SupplierStat) {
	writeHeader(f, sheet, statsHeader, []float64{16, 10, 12, 12, 12, 10})
	var totalQty, totalCost, totalAmount, totalProfit int
	row := 2
	for _, stat := range stats {
		setRow(f, sheet, row, []interface{}{
			stat.Supplier, stat.Quantity, round(stat.Cost),
			round(stat.Amount), round(stat.Profit),
			fmt.Sprintf("%.1f%%", stat.ProfitRate()*100),
		})
		totalQty += stat.Quantity
		totalCost += round(stat.Cost)
		totalAmount += round(stat.Amount)
		totalProfit += round(stat.Profit)
		row++
	}
	rate := "0.0%"
	if totalAmount != 0 {
		rate = fmt.Sprintf("%.1f%%", float64(totalProfit)/float64(totalAmount)*100)
	}
	setRow(f, sheet, row, []interface{}{"合计", totalQty, totalCost, totalAmount, totalProfit, rate})
}

// SupplierStats writes the full statistics workbook: a summary sheet,
// one ranked sheet per sort dimension and a detail sheet per supplier.
func SupplierStats(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	stats := aggregateBySupplier(orders)

	used := map[string]bool{"汇总": true}
	f.SetSheetName("Sheet1", "汇总")
	writeStatsSheet(f, "汇总", stats)

	ranked := []struct {
		name string
		less func(a, b SupplierStat) bool
	}{
		{"按成本", func(a, b SupplierStat) bool { return a.Cost > b.Cost }},
		{"按供应商", func(a, b SupplierStat) bool { return a.Supplier < b.Supplier }},
		{"按数量", func(a, b SupplierStat) bool { return a.Quantity > b.Quantity }},
		{"按金额", func(a, b SupplierStat) bool { return a.Amount > b.Amount }},
		{"按利润率", func(a, b SupplierStat) bool { return a.ProfitRate() > b.ProfitRate() }},
	}
	for _, r := range ranked {
		sorted := make([]SupplierStat, len(stats))
		copy(sorted, stats)
		less := r.less
		sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
		used[r.name] = true
		f.NewSheet(r.name)
		writeStatsSheet(f, r.name, sorted)
	}

	for _, stat := range stats {
		detail := uniqueSheetName(stat.Supplier, used)
		f.NewSheet(detail)
		writeHeader(f, detail, dailyHeader, dailyWidths)
		row := 2
		for _, o := range stat.Orders {
			amount := money(o.Price) * float64(o.Quantity)
			profit := (money(o.Price) - money(o.Cost)) * float64(o.Quantity)
			setRow(f, detail, row, []interface{}{
				o.Customer, o.Code, o.Name, o.Size,
				round(money(o.Price)), round(money(o.Cost)),
				o.Quantity, round(amount), round(profit),
				o.Supplier, o.Timestamp.Format("2006-01-02"), o.Remark,
			})
			row++
		}
	}

	f.SetActiveSheet(1)
	return errors.Wrap(f.Write(w), "write supplier stats workbook")
}

var catalogHeader = []string{"商品编码", "商品名称", "供应商", "成本", "单价", "尺码", "备注"}

// ProductCatalog writes the whole product collection, sorted by
// canonical key so successive exports diff cleanly.
func ProductCatalog(w io.Writer, products map[string]domain.Product) error {
	f := excelize.NewFile()
	const sheet = "商品目录"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, catalogHeader, []float64{14, 24, 16, 10, 10, 10, 20})

	keys := make([]string, 0, len(products))
	for k := range products {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := 2
	for _, k := range keys {
		p := products[k]
		setRow(f, sheet, row, []interface{}{
			p.Code, p.Name, p.Supplier, p.Cost, p.Price, p.Size, p.Remark,
		})
		row++
	}
	return errors.Wrap(f.Write(w), "write product catalog workbook")
}

// reorderLine is one (code, size) rollup for a supplier.
type reorderLine struct {
	Code     string
	Name     string
	Size     string
	Quantity int
}

// SupplierReorder writes one sheet per supplier, each line a (code, size)
// pair with the summed quantity to reorder from the given orders.
func SupplierReorder(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	stats := aggregateBySupplier(orders)
	if len(stats) == 0 {
		f.SetSheetName("Sheet1", "补货")
		writeHeader(f, "补货", []string{"商品编码", "商品名称", "尺码", "数量"}, []float64{14, 24, 10, 8})
		return errors.Wrap(f.Write(w), "write reorder workbook")
	}

	used := make(map[string]bool)
	first := true
	for _, stat := range stats {
		lines := make(map[string]*reorderLine)
		for _, o := range stat.Orders {
			lk := o.Code + "\x00" + o.Size
			line, ok := lines[lk]
			if !ok {
				line = &reorderLine{Code: o.Code, Name: o.Name, Size: o.Size}
				lines[lk] = line
			}
			line.Quantity += o.Quantity
		}
		sorted := make([]*reorderLine, 0, len(lines))
		for _, line := range lines {
			sorted = append(sorted, line)
		}
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Code != sorted[j].Code {
				return sorted[i].Code < sorted[j].Code
			}
			return sorted[i].Size < sorted[j].Size
		})

		sheet := uniqueSheetName(stat.Supplier, used)
		if first {
			f.SetSheetName("Sheet1", sheet)
			first = false
		} else {
			f.NewSheet(sheet)
		}
		writeHeader(f, sheet, []string{"商品编码", "商品名称", "尺码", "数量"}, []float64{14, 24, 10, 8})
		row := 2
		total := 0
		for _, line := range sorted {
			setRow(f, sheet, row, []interface{}{line.Code, line.Name, line.Size, line.Quantity})
			total += line.Quantity
			row++
		}
		setRow(f, sheet, row, []interface{}{"合计", "", "", total})
	}
	return errors.Wrap(f.Write(w), "write reorder workbook")
}
