package excel

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultColWidth  = 8.43
	defaultRowHeight = 15.0

	// Pixel conversion factors for column width units and row height points.
	pxPerWidthUnit = 7.0
	pxPerHeightPt  = 0.75
)

// TopLeftOf resolves a cell reference to the anchor (top-left) cell of the
// merged region containing it, or returns the reference unchanged. Writing to
// a non-anchor cell of a merged region is a silent no-op in the file format,
// so every engine write goes through this resolver.
func TopLeftOf(f *excelize.File, sheet, cell string) string {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return cell
	}
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return cell
	}
	for _, m := range merges {
		c1, r1, err1 := excelize.CellNameToCoordinates(m.GetStartAxis())
		c2, r2, err2 := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err1 != nil || err2 != nil {
			continue
		}
		if col >= c1 && col <= c2 && row >= r1 && row <= r2 {
			return m.GetStartAxis()
		}
	}
	return cell
}

// RangeDimensionsPx returns the pixel width and height of the rectangular
// range [startCell, endCell], summing column widths and row heights.
func RangeDimensionsPx(f *excelize.File, sheet, startCell, endCell string) (int, int) {
	startCol, startRow, err := excelize.CellNameToCoordinates(startCell)
	if err != nil {
		return 0, 0
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(endCell)
	if err != nil {
		return 0, 0
	}

	totalWidth := 0.0
	for col := startCol; col <= endCol; col++ {
		name, _ := excelize.ColumnNumberToName(col)
		width, err := f.GetColWidth(sheet, name)
		if err != nil || width <= 0 {
			width = defaultColWidth
		}
		totalWidth += width * pxPerWidthUnit
	}

	totalHeight := 0.0
	for row := startRow; row <= endRow; row++ {
		height, err := f.GetRowHeight(sheet, row)
		if err != nil || height <= 0 {
			height = defaultRowHeight
		}
		totalHeight += height * pxPerHeightPt
	}
	return int(totalWidth), int(totalHeight)
}

// AutofitRowHeight sets the row height of cell's row from the wrapped line
// count of text. Column character capacity is floor(width × 1.15); the result
// is max(15, lines × multiplier). Deterministic for a given text and width.
func AutofitRowHeight(f *excelize.File, sheet, cell, text string, multiplier float64) {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return
	}
	name, _ := excelize.ColumnNumberToName(col)
	width, err := f.GetColWidth(sheet, name)
	if err != nil || width <= 0 {
		width = defaultColWidth
	}
	charsPerLine := int(width * 1.15)
	if charsPerLine < 1 {
		charsPerLine = 1
	}

	totalLines := 0
	for _, line := range strings.Split(strings.TrimRight(text, " \t\r\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			totalLines++
			continue
		}
		totalLines += (utf8.RuneCountInString(line)-1)/charsPerLine + 1
	}

	height := float64(totalLines) * multiplier
	if height < defaultRowHeight {
		height = defaultRowHeight
	}
	_ = f.SetRowHeight(sheet, row, height)
}

// AddRows shifts a cell reference down by n rows ("L41" + 7 -> "L48").
func AddRows(cell string, n int) string {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return cell
	}
	name, _ := excelize.ColumnNumberToName(col)
	return fmt.Sprintf("%s%d", name, row+n)
}

// DocumentCursor carries the row offset introduced by item-table reflow.
// Every region below the item table must be anchored through it; a literal
// row constant below the insertion point is a layout corruption waiting to
// happen.
type DocumentCursor struct {
	Extra int
}

func (c DocumentCursor) Row(base int) int { return base + c.Extra }

func (c DocumentCursor) Cell(col string, base int) string {
	return fmt.Sprintf("%s%d", col, base+c.Extra)
}
