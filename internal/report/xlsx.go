package report

import (
	"fmt"
	"io"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetShareholders = "Shareholders"
	SheetBranches     = "Branches"

	numFmtAmount = 4  // #,##0.00
	numFmtText   = 49 // @
)

// RenderXLSX writes the full, unfiltered distribution as a workbook with one
// sheet of shareholder totals and one sheet of per-branch entries.
func RenderXLSX(w io.Writer, dist *domain.ProfitDistribution) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetShareholders); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetBranches); err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return fmt.Errorf("xlsx: amount style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: total style: %w", err)
	}
	text, err := f.NewStyle(&excelize.Style{NumFmt: numFmtText})
	if err != nil {
		return fmt.Errorf("xlsx: text style: %w", err)
	}

	if err := writeShareholderSheet(f, dist, header, amount, total, text); err != nil {
		return err
	}
	if err := writeBranchSheet(f, dist, header, amount, text); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeShareholderSheet(f *excelize.File, dist *domain.ProfitDistribution, header, amount, total, text int) error {
	sheet := SheetShareholders
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Name", "QUID", "Branches", "Total Profit"}); err != nil {
		return fmt.Errorf("xlsx: header row: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", header); err != nil {
		return err
	}

	row := 2
	for _, s := range dist.ShareholderData {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &[]any{s.Name, s.Quid, len(s.Branches), s.TotalProfit}); err != nil {
			return fmt.Errorf("xlsx: shareholder row %d: %w", row, err)
		}
		row++
	}
	last := row - 1
	if last >= 2 {
		if err := f.SetCellStyle(sheet, "B2", fmt.Sprintf("B%d", last), text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", last), amount); err != nil {
			return err
		}
	}

	totalCell := fmt.Sprintf("A%d", row)
	if err := f.SetSheetRow(sheet, totalCell, &[]any{"Company total", "", "", dist.TotalProfit}); err != nil {
		return fmt.Errorf("xlsx: total row: %w", err)
	}
	if err := f.SetCellStyle(sheet, totalCell, fmt.Sprintf("D%d", row), total); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "D", 16); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeBranchSheet(f *excelize.File, dist *domain.ProfitDistribution, header, amount, text int) error {
	sheet := SheetBranches
	cols := []any{"Name", "QUID", "Branch", "Share %", "Zakath %", "Branch Profit", "Shareholder Profit"}
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return fmt.Errorf("xlsx: header row: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", header); err != nil {
		return err
	}

	row := 2
	for _, s := range dist.ShareholderData {
		for _, b := range s.Branches {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := []any{s.Name, s.Quid, b.BranchName, b.SharePercentage, b.ZakathPercentage, b.BranchProfit, b.ShareholderProfit}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("xlsx: branch row %d: %w", row, err)
			}
			row++
		}
	}
	if last := row - 1; last >= 2 {
		if err := f.SetCellStyle(sheet, "B2", fmt.Sprintf("B%d", last), text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "F2", fmt.Sprintf("G%d", last), amount); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "C", 24)
}
