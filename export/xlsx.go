// Package export writes the portfolio to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etnz/sentifolio"
	"github.com/xuri/excelize/v2"
)

const (
	TradesSheet    = "Trades"
	PositionsSheet = "Positions"
)

var (
	tradesHeader    = []any{"Timestamp", "Symbol", "Action", "Quantity", "Price", "Sentiment", "Value"}
	positionsHeader = []any{"Symbol", "Shares", "CostBasis", "TotalCost"}
)

// WriteXLSX writes the trades and the positions of p as an Excel workbook.
func WriteXLSX(w io.Writer, p *sentifolio.Portfolio) error {
	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), TradesSheet)
	if _, err := fx.NewSheet(PositionsSheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeRows(fx, TradesSheet, headerStyle, tradesHeader, tradeRows(p.Trades(0))); err != nil {
		return err
	}
	var positions [][]any
	for pos := range p.Ledger().Positions() {
		positions = append(positions, []any{pos.Symbol, pos.Shares.AsFloat(), pos.CostBasis.AsFloat(), pos.TotalCost().AsFloat()})
	}
	if err := writeRows(fx, PositionsSheet, headerStyle, positionsHeader, positions); err != nil {
		return err
	}
	return fx.Write(w)
}

// SaveXLSX writes the workbook to path, creating its directory if needed.
func SaveXLSX(path string, p *sentifolio.Portfolio) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteXLSX(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tradeRows(trades []sentifolio.Trade) [][]any {
	rows := make([][]any, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []any{
			t.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			t.Symbol,
			string(t.Action),
			t.Quantity.AsFloat(),
			t.Price.AsFloat(),
			t.Sentiment,
			t.Value().AsFloat(),
		})
	}
	return rows
}

func writeRows(fx *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
