package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/xuri/excelize/v2"
)

// Auxiliary sheets hold full-resolution evidentiary images, one per labeled
// row, with explicit page breaks driving pagination.
const (
	auxDescriptorHeightPt = 20
	auxMaxImageWidthPx    = 700
	auxMaxImageHeightPx   = 1060 - auxDescriptorHeightPt
)

// insertCMRSheet puts the CMR document photo on its own sheet, unresized.
func (e *Engine) insertCMRSheet(ctx context.Context, f *excelize.File, url string) {
	if url == "" {
		return
	}
	data := e.fetcher.Fetch(ctx, url)
	if data == nil {
		return
	}
	img, err := DecodeOriented(data)
	if err != nil {
		e.log.Warn().Err(err).Str("url", url).Msg("cmr image decode failed")
		return
	}
	encoded, ext, err := EncodeImage(img, !isOpaque(img))
	if err != nil {
		e.log.Warn().Err(err).Str("url", url).Msg("cmr image encode failed")
		return
	}

	if _, err := f.NewSheet(sheetCMR); err != nil {
		e.log.Warn().Err(err).Msg("cmr sheet create failed")
		return
	}
	if err := f.AddPictureFromBytes(sheetCMR, "A1", &excelize.Picture{
		Extension: ext,
		File:      encoded,
		Format:    &excelize.GraphicOptions{},
	}); err != nil {
		e.log.Warn().Err(err).Msg("cmr image insert failed")
	}
	e.setupImageSheet(f, sheetCMR)
}

// insertImagesSheet creates a sheet holding every image of one group, each
// under a numbered descriptor row ("Delivery Slip 2"), with a page break
// before every image after the first. Row heights track the placed image so
// one image fills one printed page.
func (e *Engine) insertImagesSheet(ctx context.Context, f *excelize.File, urls []string, title string) {
	if len(urls) == 0 {
		return
	}
	if _, err := f.NewSheet(title); err != nil {
		e.log.Warn().Err(err).Str("sheet", title).Msg("image sheet create failed")
		return
	}

	descriptorStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	label := strings.TrimSuffix(title, "s")

	row := 1
	for idx, url := range urls {
		if idx > 0 {
			// Blank spacer row at default height, then break to a new page.
			_ = f.InsertPageBreak(title, fmt.Sprintf("A%d", row))
			row++
		}

		cell := fmt.Sprintf("A%d", row)
		_ = f.SetCellValue(title, cell, fmt.Sprintf("%s %d", label, idx+1))
		_ = f.SetCellStyle(title, cell, cell, descriptorStyle)
		_ = f.SetRowHeight(title, row, auxDescriptorHeightPt)
		row++

		if url == "" {
			continue
		}
		data := e.fetcher.Fetch(ctx, url)
		if data == nil {
			continue
		}
		img, err := DecodeOriented(data)
		if err != nil {
			e.log.Warn().Err(err).Str("url", url).Msg("sheet image decode failed")
			continue
		}

		if img.Bounds().Dx() > auxMaxImageWidthPx || img.Bounds().Dy() > auxMaxImageHeightPx {
			img = imaging.Fit(img, auxMaxImageWidthPx, auxMaxImageHeightPx, imaging.Lanczos)
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			e.log.Warn().Err(err).Str("url", url).Msg("sheet image encode failed")
			continue
		}
		if err := f.AddPictureFromBytes(title, fmt.Sprintf("A%d", row), &excelize.Picture{
			Extension: ".png",
			File:      buf.Bytes(),
			Format:    &excelize.GraphicOptions{},
		}); err != nil {
			e.log.Warn().Err(err).Str("url", url).Msg("sheet image insert failed")
			continue
		}
		_ = f.SetRowHeight(title, row, float64(img.Bounds().Dy())*pxPerHeightPt)
		row++
	}
	e.setupImageSheet(f, title)
}

// setupImageSheet configures an image sheet for printing: portrait A4 at
// natural scale with fit-to-page off so the explicit breaks control
// pagination, and near-zero margins.
func (e *Engine) setupImageSheet(f *excelize.File, sheet string) {
	portrait := "portrait"
	a4 := 9
	scale := uint(100)
	fitOff := false
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{
		Orientation: &portrait,
		Size:        &a4,
		AdjustTo:    &scale,
	}); err != nil {
		e.log.Warn().Err(err).Str("sheet", sheet).Msg("page layout failed")
	}
	_ = f.SetSheetProps(sheet, &excelize.SheetPropsOptions{FitToPage: &fitOff})

	zero := 0.0
	margin := 0.2
	_ = f.SetPageMargins(sheet, &excelize.PageLayoutMarginsOptions{
		Top:    &zero,
		Bottom: &zero,
		Left:   &margin,
		Right:  &margin,
	})
}
