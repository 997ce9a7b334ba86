package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Orders"

var headers = []string{
	"ID", "Created At", "Branch", "Slot", "Customer", "Email", "Phone", "Address",
	"Vehicle", "Size", "Package", "Add-ons", "Before Tax", "After Tax", "Paid", "Status",
}

// BuildWorkbook lays out orders as a single styled sheet with a period
// title row and a header row.
func BuildWorkbook(orders []*models.Order, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", periodTitle(from, to))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	paidStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})

	for i, o := range orders {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &[]interface{}{
			o.ID,
			o.CreatedAt.UTC().Format("2006-01-02 15:04"),
			o.Branch,
			o.SlotStart,
			o.CustomerName,
			o.Email,
			o.Phone,
			o.Address,
			o.Vehicle,
			string(o.VehicleSize),
			string(o.Package),
			o.Addons,
			o.PriceBeforeTax.InexactFloat64(),
			o.PriceAfterTax.InexactFloat64(),
			o.Paid,
			o.Status,
		}); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if o.Paid {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, cell, end, paidStyle)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", lastCol, 18)
	return f, nil
}

// WriteOrders streams the workbook for orders to w.
func WriteOrders(w io.Writer, orders []*models.Order, from, to time.Time) error {
	f, err := BuildWorkbook(orders, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveOrders writes the workbook under dir and returns the file path.
func SaveOrders(dir string, orders []*models.Order, from, to time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := BuildWorkbook(orders, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(from, to))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// FileName is the export file name for the period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("orders_%s_to_%s.xlsx", dateOrOpen(from, "start"), dateOrOpen(to, "now"))
}

func periodTitle(from, to time.Time) string {
	return fmt.Sprintf("Orders: %s - %s", dateOrOpen(from, "start"), dateOrOpen(to, "now"))
}

func dateOrOpen(t time.Time, open string) string {
	if t.IsZero() {
		return open
	}
	return t.Format("2006-01-02")
}
