// Package report exports the session outcome to an Excel workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/bybit-volume-bot/internal/status"
)

// SessionSummary is everything the workbook records about one session.
type SessionSummary struct {
	Symbol       string
	Environment  string
	StartedAt    time.Time
	EndedAt      time.Time
	Volume       float64
	TargetVolume float64
	Fills        int64
	Loss         float64
	MaxLoss      float64
	Reason       string
}

// ExcelReporter writes session workbooks.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteSessionXLSX writes the summary and hourly breakdown to path.
func (r *ExcelReporter) WriteSessionXLSX(summary SessionSummary, hours []status.HourStat, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const hourlySheet = "Hourly"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(hourlySheet); err != nil {
		return fmt.Errorf("failed to create hourly sheet: %w", err)
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := r.writeSummarySheet(fx, summarySheet, summary, headerStyle); err != nil {
		return err
	}
	if err := r.writeHourlySheet(fx, hourlySheet, hours, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, s SessionSummary, headerStyle int) error {
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Symbol", s.Symbol},
		{"Environment", s.Environment},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05")},
		{"Ended", s.EndedAt.Format("2006-01-02 15:04:05")},
		{"Duration", s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()},
		{"Volume (USD)", s.Volume},
		{"Target volume (USD)", s.TargetVolume},
		{"Fills", s.Fills},
		{"Loss (USD)", s.Loss},
		{"Max loss (USD)", s.MaxLoss},
		{"Shutdown reason", s.Reason},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", "B", 24)
}

func (r *ExcelReporter) writeHourlySheet(fx *excelize.File, sheet string, hours []status.HourStat, headerStyle int) error {
	header := []interface{}{"Hour", "Volume (USD)", "Fills"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write hourly header: %w", err)
	}
	for i, stat := range hours {
		row := []interface{}{stat.Hour, stat.Volume, stat.Fills}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write hourly row %d: %w", i+1, err)
		}
	}
	if err := fx.SetCellStyle(sheet, "A1", "C1", headerStyle); err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", "C", 16)
}
