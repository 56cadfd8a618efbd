package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Fixed geometry of the delivery report template. The layout engine's cell
// constants and this builder must stay in lockstep; neither is discoverable
// from the other at runtime.
const (
	SheetReport = "Delivery Report"

	ItemsPerPage      = 7
	itemStartRow      = 9
	itemInsertRow     = itemStartRow + ItemsPerPage // 16
	checklistStartRow = 18
	commentsLabelRow  = 25
	commentsRow       = 26
	collageStartRow   = 28
	collageEndRow     = 41
	collageOffsetRows = 7
	footerRow         = 44
	signatureStartRow = 45
	signatureEndRow   = 48
	templateLastRow   = 48
)

// Identity field coordinates (values; labels sit one merge group left).
const (
	cellLocation      = "A3"
	cellClientLogo    = "I3"
	cellClientLogoEnd = "L7"
	cellSupplier      = "C9"
	cellSlipNumber    = "C10"
	cellLogisticCo    = "C11"
	cellContainerNo   = "C12"
	cellPlateTruck    = "C13"
	cellPlateTrailer  = "C14"
	cellWeather       = "C15"
)

// checklistQuestions in template row order, rows 18..24.
var checklistQuestions = []string{
	"Load secured",
	"Delivery without damages",
	"Packaging in good condition",
	"Goods according to delivery slip",
	"Suitable machines used",
	"Delivery slip available",
	"Inspection report completed",
}

var identityLabels = map[string]string{
	"A9":  "Supplier",
	"A10": "Delivery slip no.",
	"A11": "Logistic company",
	"A12": "Container no.",
	"A13": "Licence plate (truck)",
	"A14": "Licence plate (trailer)",
	"A15": "Weather conditions",
}

// BuildTemplate constructs the blank report template: title, identity block,
// item table region, checklist rows, reserved logo/collage/signature regions
// and the footer. Used when no TEMPLATE_PATH override is configured.
func BuildTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetReport); err != nil {
		return nil, err
	}

	widths := []struct {
		start, end string
		width      float64
	}{
		{"A", "B", 9},
		{"C", "D", 12},
		{"E", "E", 8},
		{"F", "H", 10},
		{"I", "K", 5},
		{"L", "L", 30},
	}
	for _, w := range widths {
		if err := f.SetColWidth(SheetReport, w.start, w.end, w.width); err != nil {
			return nil, err
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10, Family: "Arial"},
	})
	if err != nil {
		return nil, err
	}
	boxStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10, Family: "Arial"},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, err
	}
	boxRightStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 10, Family: "Arial"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 5},
		},
	})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"8EAADB"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, err
	}

	// Title and the two header regions.
	_ = f.MergeCell(SheetReport, "A1", "L1")
	_ = f.SetCellValue(SheetReport, "A1", "Delivery Inspection Report")
	_ = f.SetCellStyle(SheetReport, "A1", "A1", titleStyle)

	_ = f.MergeCell(SheetReport, cellLocation, "B7")
	_ = f.MergeCell(SheetReport, cellClientLogo, cellClientLogoEnd)

	// Identity block, rows 9..15.
	for cell, label := range identityLabels {
		_ = f.SetCellValue(SheetReport, cell, label)
		_ = f.SetCellStyle(SheetReport, cell, cell, labelStyle)
	}
	for row := itemStartRow; row < itemStartRow+ItemsPerPage; row++ {
		_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		_ = f.MergeCell(SheetReport, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row))

		// Item table: label col E, name F:H, label col I, quantity J:L.
		_ = f.MergeCell(SheetReport, fmt.Sprintf("F%d", row), fmt.Sprintf("H%d", row))
		_ = f.MergeCell(SheetReport, fmt.Sprintf("J%d", row), fmt.Sprintf("L%d", row))
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("E%d", row), fmt.Sprintf("K%d", row), boxStyle)
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("L%d", row), fmt.Sprintf("L%d", row), boxRightStyle)
	}

	// Checklist header and the 7 question rows.
	_ = f.MergeCell(SheetReport, "A17", "H17")
	_ = f.SetCellValue(SheetReport, "A17", "Checklist")
	_ = f.SetCellStyle(SheetReport, "A17", "A17", headerStyle)
	for i, label := range []string{"Yes", "No", "N/A", "Comment"} {
		cell := fmt.Sprintf("%c17", 'I'+i)
		_ = f.SetCellValue(SheetReport, cell, label)
		_ = f.SetCellStyle(SheetReport, cell, cell, headerStyle)
	}
	for i, question := range checklistQuestions {
		row := checklistStartRow + i
		_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row))
		_ = f.SetCellValue(SheetReport, fmt.Sprintf("A%d", row), question)
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row), boxStyle)
	}

	// Comments and photo regions.
	_ = f.SetCellValue(SheetReport, fmt.Sprintf("A%d", commentsLabelRow), "Comments:")
	_ = f.SetCellStyle(SheetReport, fmt.Sprintf("A%d", commentsLabelRow), fmt.Sprintf("A%d", commentsLabelRow), labelStyle)
	_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", commentsRow), fmt.Sprintf("L%d", commentsRow))
	_ = f.SetCellValue(SheetReport, "A27", "Photos:")
	_ = f.SetCellStyle(SheetReport, "A27", "A27", labelStyle)

	// Footer: inspector, date, signature region.
	_ = f.SetCellValue(SheetReport, fmt.Sprintf("C%d", footerRow), "Inspector:")
	_ = f.SetCellStyle(SheetReport, fmt.Sprintf("C%d", footerRow), fmt.Sprintf("C%d", footerRow), labelStyle)
	_ = f.MergeCell(SheetReport, fmt.Sprintf("D%d", footerRow), fmt.Sprintf("G%d", footerRow))
	_ = f.SetCellValue(SheetReport, fmt.Sprintf("I%d", footerRow), "Date:")
	_ = f.SetCellStyle(SheetReport, fmt.Sprintf("I%d", footerRow), fmt.Sprintf("I%d", footerRow), labelStyle)
	_ = f.MergeCell(SheetReport, fmt.Sprintf("J%d", footerRow), fmt.Sprintf("L%d", footerRow))
	_ = f.MergeCell(SheetReport, fmt.Sprintf("D%d", signatureStartRow), fmt.Sprintf("G%d", signatureEndRow))

	portrait := "portrait"
	a4 := 9
	_ = f.SetPageLayout(SheetReport, &excelize.PageLayoutOptions{Orientation: &portrait, Size: &a4})

	return f, nil
}

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}
