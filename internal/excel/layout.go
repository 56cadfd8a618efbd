package excel

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/delivery-reports/internal/fetch"
	"github.com/nurpe/delivery-reports/internal/model"
	"github.com/nurpe/delivery-reports/internal/storage"
)

const (
	tick = "✓"

	damageImageRowSpan = 13

	sheetCMR        = "CMR"
	sheetSlips      = "Delivery Slips"
	sheetAdditional = "Additional Images"
	sheetSealProofs = "Goods Seal Proofs"
)

// Engine populates the report workbook from a prepared payload. It owns the
// full document layout: identity fields, item table with reflow, checklist,
// photo collages, damages sub-table, auxiliary image sheets and the footer.
type Engine struct {
	store        storage.Store
	fetcher      *fetch.Fetcher
	composer     *Composer
	templatePath string
	log          zerolog.Logger
	now          func() time.Time
}

func NewEngine(store storage.Store, fetcher *fetch.Fetcher, composer *Composer, templatePath string, log zerolog.Logger) *Engine {
	return &Engine{
		store:        store,
		fetcher:      fetcher,
		composer:     composer,
		templatePath: templatePath,
		log:          log,
		now:          time.Now,
	}
}

// Render lays out the full report document and writes it to the store under
// excelKey. The save is two-phase: the base document (identity, items,
// checklist, collage, footer) is saved first so that the reflowed row
// positions are committed, then the workbook is reopened and the appended
// content (comments, damages, auxiliary sheets, logo, signature) is written
// against the final row numbers.
//
// A single failed image or style copy never aborts the render; workbook load
// and save failures do.
func (e *Engine) Render(ctx context.Context, p *model.ReportPayload, excelKey string) error {
	f, fresh, err := e.open(ctx, excelKey)
	if err != nil {
		return err
	}
	defer f.Close()

	extra := len(p.Items) - ItemsPerPage
	if extra < 0 {
		extra = 0
	}
	cursor := DocumentCursor{Extra: extra}

	// Reflow happens exactly once per document. A resumed render finds the
	// rows already inserted and only rewrites values, which is idempotent.
	if fresh && extra > 0 {
		if err := e.reflowItemRows(f, extra); err != nil {
			return fmt.Errorf("reflow item rows: %w", err)
		}
	}

	e.writeIdentity(f, p)
	e.writeItems(f, p.Items)
	e.writeChecklist(f, p, cursor)
	e.insertCollage(ctx, f, p.PrimaryCollageURLs(),
		cursor.Cell("A", collageStartRow), cursor.Cell("L", collageEndRow), collageOffsetRows)
	e.writeFooter(f, p, cursor)

	if err := e.save(ctx, f, excelKey); err != nil {
		return err
	}

	// Second phase against the committed document.
	data, err := e.store.Open(ctx, excelKey)
	if err != nil {
		return fmt.Errorf("reopen workbook: %w", err)
	}
	f2, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse reopened workbook: %w", err)
	}
	defer f2.Close()

	e.writeComments(f2, p, cursor)

	// Manual page break so the damages table never splits across PDF pages.
	bottom := sheetMaxRow(f2, SheetReport)
	_ = f2.InsertPageBreak(SheetReport, fmt.Sprintf("A%d", bottom+1))
	e.writeDamages(ctx, f2, p)

	e.insertCMRSheet(ctx, f2, p.CMRImageURL)
	e.insertImagesSheet(ctx, f2, p.DeliverySlipImageURLs, sheetSlips)
	e.insertImagesSheet(ctx, f2, p.AdditionalImageURLs, sheetAdditional)
	e.insertImagesSheet(ctx, f2, p.GoodsSealProofURLs, sheetSealProofs)

	e.insertClientLogo(ctx, f2, p)
	e.insertSignature(ctx, f2, p.UserSignatureURL, cursor)

	return e.save(ctx, f2, excelKey)
}

// open loads an in-progress document from the store when one exists,
// otherwise starts from the configured template file or the built-in one.
// The boolean reports whether the document is fresh.
func (e *Engine) open(ctx context.Context, key string) (*excelize.File, bool, error) {
	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("check workbook %s: %w", key, err)
	}
	if exists {
		data, err := e.store.Open(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("open workbook %s: %w", key, err)
		}
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, false, fmt.Errorf("parse workbook %s: %w", key, err)
		}
		return f, false, nil
	}

	if e.templatePath != "" {
		f, err := excelize.OpenFile(e.templatePath)
		if err != nil {
			return nil, false, fmt.Errorf("open template %s: %w", e.templatePath, err)
		}
		return f, true, nil
	}
	f, err := BuildTemplate()
	if err != nil {
		return nil, false, fmt.Errorf("build template: %w", err)
	}
	return f, true, nil
}

func (e *Engine) save(ctx context.Context, f *excelize.File, key string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("serialize workbook: %w", err)
	}
	if err := e.store.Save(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("save workbook %s: %w", key, err)
	}
	return nil
}

// writeIdentity fills the fixed header fields. All cells sit above the item
// insertion row and are untouched by reflow.
func (e *Engine) writeIdentity(f *excelize.File, p *model.ReportPayload) {
	fields := []struct {
		cell, value string
		align       *excelize.Alignment
	}{
		{cellLocation, p.Location, &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}},
		{cellSupplier, p.Supplier, nil},
		{cellSlipNumber, p.DeliverySlipNumber, nil},
		{cellLogisticCo, p.LogisticCompany, nil},
		{cellContainerNo, p.ContainerNumber, nil},
		{cellPlateTruck, p.LicencePlateTruck, nil},
		{cellPlateTrailer, p.LicencePlateTrailer, nil},
		{cellWeather, p.WeatherConditions, nil},
	}
	for _, fd := range fields {
		target := TopLeftOf(f, SheetReport, fd.cell)
		if err := f.SetCellValue(SheetReport, target, fd.value); err != nil {
			e.log.Warn().Err(err).Str("cell", target).Msg("identity field write failed")
			continue
		}
		if fd.align != nil {
			if styleID, err := f.NewStyle(&excelize.Style{Alignment: fd.align}); err == nil {
				_ = f.SetCellStyle(SheetReport, target, target, styleID)
			}
		}
	}
}

// writeItems fills the item table: label, name, label, quantity per row,
// starting at the table's first row and running through any reflowed rows.
func (e *Engine) writeItems(f *excelize.File, items []model.ReportItem) {
	for idx, item := range items {
		row := itemStartRow + idx
		_ = f.SetCellValue(SheetReport, TopLeftOf(f, SheetReport, fmt.Sprintf("E%d", row)), "Item")
		_ = f.SetCellValue(SheetReport, TopLeftOf(f, SheetReport, fmt.Sprintf("F%d", row)), item.Name)
		_ = f.SetCellValue(SheetReport, TopLeftOf(f, SheetReport, fmt.Sprintf("I%d", row)), "Amount")
		_ = f.SetCellValue(SheetReport, TopLeftOf(f, SheetReport, fmt.Sprintf("J%d", row)), item.Quantity)
	}
}

// reflowItemRows grows the item table by count rows at the insertion point.
// Merged ranges at or below the insertion row are unmerged first and
// re-merged shifted afterwards, the new rows take their cell styles from the
// last template item row, and each new row gets the standard four merge
// groups with the thick outer edge on its last column.
func (e *Engine) reflowItemRows(f *excelize.File, count int) error {
	type span struct{ start, end string }
	merges, err := f.GetMergeCells(SheetReport)
	if err != nil {
		return fmt.Errorf("list merged ranges: %w", err)
	}
	var shifted []span
	for _, m := range merges {
		_, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		if r1 < itemInsertRow {
			continue
		}
		shifted = append(shifted, span{
			start: AddRows(m.GetStartAxis(), count),
			end:   AddRows(m.GetEndAxis(), count),
		})
		if err := f.UnmergeCell(SheetReport, m.GetStartAxis(), m.GetEndAxis()); err != nil {
			return fmt.Errorf("unmerge %s:%s: %w", m.GetStartAxis(), m.GetEndAxis(), err)
		}
	}

	if err := f.InsertRows(SheetReport, itemInsertRow, count); err != nil {
		return fmt.Errorf("insert %d rows at %d: %w", count, itemInsertRow, err)
	}

	for i := 0; i < count; i++ {
		row := itemInsertRow + i
		for col := 1; col <= 12; col++ {
			name, _ := excelize.ColumnNumberToName(col)
			src := fmt.Sprintf("%s%d", name, itemInsertRow-1)
			dst := fmt.Sprintf("%s%d", name, row)
			styleID, err := f.GetCellStyle(SheetReport, src)
			if err != nil {
				e.log.Warn().Err(err).Str("cell", src).Msg("row style copy failed")
				continue
			}
			_ = f.SetCellStyle(SheetReport, dst, dst, styleID)
		}

		_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		_ = f.MergeCell(SheetReport, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row))
		_ = f.MergeCell(SheetReport, fmt.Sprintf("F%d", row), fmt.Sprintf("H%d", row))
		_ = f.MergeCell(SheetReport, fmt.Sprintf("J%d", row), fmt.Sprintf("L%d", row))
		e.setBorderEdge(f, fmt.Sprintf("L%d", row), "right", 5)
	}

	for _, s := range shifted {
		if err := f.MergeCell(SheetReport, s.start, s.end); err != nil {
			return fmt.Errorf("re-merge %s:%s: %w", s.start, s.end, err)
		}
	}
	return nil
}

// writeChecklist renders the 7 tri-state rows: the tick glyph lands in the
// yes, no or n/a column depending on the flag, and the optional comment is
// wrapped into the last column with the row height fitted to it.
func (e *Engine) writeChecklist(f *excelize.File, p *model.ReportPayload, cursor DocumentCursor) {
	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("checklist glyph style failed")
	}
	wrapped, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for i, name := range model.ChecklistOrder {
		entry := p.Checklist[name]
		row := cursor.Row(checklistStartRow + i)

		glyphs := []struct {
			col string
			hit bool
		}{
			{"I", entry.Status != nil && *entry.Status},
			{"J", entry.Status != nil && !*entry.Status},
			{"K", entry.Status == nil},
		}
		for _, g := range glyphs {
			cell := TopLeftOf(f, SheetReport, fmt.Sprintf("%s%d", g.col, row))
			value := ""
			if g.hit {
				value = tick
			}
			_ = f.SetCellValue(SheetReport, cell, value)
			_ = f.SetCellStyle(SheetReport, cell, cell, centered)
		}

		if entry.Comment == "" {
			continue
		}
		cell := TopLeftOf(f, SheetReport, fmt.Sprintf("L%d", row))
		_ = f.SetCellValue(SheetReport, cell, entry.Comment)
		_ = f.SetCellStyle(SheetReport, cell, cell, wrapped)
		AutofitRowHeight(f, SheetReport, cell, entry.Comment, 15)
	}
}

// insertCollage composes the photo set for the region and anchors the result
// at the region's start cell. The composition box extends extendRows+1 rows
// past the region end, matching the reserved whitespace below each region.
func (e *Engine) insertCollage(ctx context.Context, f *excelize.File, urls []string, startCell, endCell string, extendRows int) {
	if len(urls) == 0 {
		return
	}
	boxW, boxH := RangeDimensionsPx(f, SheetReport, startCell, AddRows(endCell, extendRows+1))
	collage := e.composer.Compose(ctx, urls, boxW, boxH)
	if collage == nil {
		return
	}
	if err := f.AddPictureFromBytes(SheetReport, startCell, &excelize.Picture{
		Extension: collage.Ext,
		File:      collage.Data,
		Format:    &excelize.GraphicOptions{},
	}); err != nil {
		e.log.Warn().Err(err).Str("cell", startCell).Msg("collage insert failed")
	}
}

// writeFooter stamps the inspector name and generation date.
func (e *Engine) writeFooter(f *excelize.File, p *model.ReportPayload, cursor DocumentCursor) {
	left, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
	})

	user := TopLeftOf(f, SheetReport, cursor.Cell("D", footerRow))
	_ = f.SetCellValue(SheetReport, user, p.UserDisplayName)
	_ = f.SetCellStyle(SheetReport, user, user, left)

	date := TopLeftOf(f, SheetReport, cursor.Cell("J", footerRow))
	_ = f.SetCellValue(SheetReport, date, e.now().Format("2006-01-02"))
	_ = f.SetCellStyle(SheetReport, date, date, left)
}

func (e *Engine) writeComments(f *excelize.File, p *model.ReportPayload, cursor DocumentCursor) {
	if p.Comments == "" {
		return
	}
	cell := TopLeftOf(f, SheetReport, cursor.Cell("A", commentsRow))
	wrapped, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	_ = f.SetCellValue(SheetReport, cell, p.Comments)
	_ = f.SetCellStyle(SheetReport, cell, cell, wrapped)
	AutofitRowHeight(f, SheetReport, cell, p.Comments, 1.5)
}

// writeDamages appends the bordered damages sub-table below the current
// content: a filled header row, an optional description row and a fixed-height
// image block holding the damage photo collage. A medium outer border is
// traced cell-by-cell around the whole extent.
func (e *Engine) writeDamages(ctx context.Context, f *excelize.File, p *model.ReportPayload) {
	if !p.HasDamages() {
		return
	}

	startRow := sheetMaxRow(f, SheetReport) + 2
	row := startRow

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"8EAADB"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	labelStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	textStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10, Family: "Arial"},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorders(),
	})
	borderStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10, Family: "Arial"},
		Border: thinBorders(),
	})

	_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row))
	_ = f.SetCellValue(SheetReport, fmt.Sprintf("A%d", row), "Damages")
	_ = f.SetCellStyle(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row), headerStyle)

	if p.DamageDescription != "" {
		row++
		_ = f.SetCellValue(SheetReport, fmt.Sprintf("A%d", row), "Description:")
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		_ = f.MergeCell(SheetReport, fmt.Sprintf("B%d", row), fmt.Sprintf("L%d", row))
		_ = f.SetCellValue(SheetReport, fmt.Sprintf("B%d", row), p.DamageDescription)
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("B%d", row), fmt.Sprintf("L%d", row), textStyle)
		AutofitRowHeight(f, SheetReport, fmt.Sprintf("B%d", row), p.DamageDescription, 1.5)
	}

	if len(p.DamageImageURLs) > 0 {
		row++
		imgStart := row
		imgEnd := row + damageImageRowSpan

		_ = f.MergeCell(SheetReport, fmt.Sprintf("A%d", imgStart), fmt.Sprintf("A%d", imgEnd))
		_ = f.SetCellValue(SheetReport, fmt.Sprintf("A%d", imgStart), "Images:")
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("A%d", imgStart), fmt.Sprintf("A%d", imgEnd), labelStyle)
		_ = f.MergeCell(SheetReport, fmt.Sprintf("B%d", imgStart), fmt.Sprintf("L%d", imgEnd))
		_ = f.SetCellStyle(SheetReport, fmt.Sprintf("B%d", imgStart), fmt.Sprintf("L%d", imgEnd), borderStyle)

		// Few photos get a deep box, many photos a tight one; the extension
		// below the visible block is where the collage's slack lives.
		extend := collageOffsetRows
		if len(p.DamageImageURLs) > 3 {
			extend = 1
		}
		e.insertCollage(ctx, f, p.DamageImageURLs,
			fmt.Sprintf("B%d", imgStart), fmt.Sprintf("L%d", imgEnd), extend)
		row = imgEnd
	}

	e.traceOuterBorder(f, startRow, row, 1, 12, 2)
}

// traceOuterBorder overlays the given border line style on the outer edges of
// the rectangular cell block, preserving each cell's interior edges.
func (e *Engine) traceOuterBorder(f *excelize.File, minRow, maxRow, minCol, maxCol, lineStyle int) {
	for col := minCol; col <= maxCol; col++ {
		name, _ := excelize.ColumnNumberToName(col)
		e.setBorderEdge(f, fmt.Sprintf("%s%d", name, minRow), "top", lineStyle)
		e.setBorderEdge(f, fmt.Sprintf("%s%d", name, maxRow), "bottom", lineStyle)
	}
	for row := minRow; row <= maxRow; row++ {
		startName, _ := excelize.ColumnNumberToName(minCol)
		endName, _ := excelize.ColumnNumberToName(maxCol)
		e.setBorderEdge(f, fmt.Sprintf("%s%d", startName, row), "left", lineStyle)
		e.setBorderEdge(f, fmt.Sprintf("%s%d", endName, row), "right", lineStyle)
	}
}

// setBorderEdge rewrites one border edge of a cell while keeping the rest of
// its style intact.
func (e *Engine) setBorderEdge(f *excelize.File, cell, edge string, lineStyle int) {
	style := &excelize.Style{}
	if styleID, err := f.GetCellStyle(SheetReport, cell); err == nil {
		if existing, err := f.GetStyle(styleID); err == nil && existing != nil {
			style = existing
		}
	}

	borders := make([]excelize.Border, 0, 4)
	for _, b := range style.Border {
		if b.Type != edge {
			borders = append(borders, b)
		}
	}
	borders = append(borders, excelize.Border{Type: edge, Color: "000000", Style: lineStyle})
	style.Border = borders

	newID, err := f.NewStyle(style)
	if err != nil {
		e.log.Warn().Err(err).Str("cell", cell).Msg("border style failed")
		return
	}
	_ = f.SetCellStyle(SheetReport, cell, cell, newID)
}

// insertClientLogo centers the location logo into its reserved header region.
// When the logo is missing or unfetchable the client name is written as a
// textual fallback instead.
func (e *Engine) insertClientLogo(ctx context.Context, f *excelize.File, p *model.ReportPayload) {
	var data []byte
	if p.ClientLogoURL != "" {
		data = e.fetcher.Fetch(ctx, p.ClientLogoURL)
	} else {
		e.log.Info().Msg("no client logo URL provided")
	}
	if data == nil {
		if p.ClientName != "" {
			cell := TopLeftOf(f, SheetReport, cellClientLogo)
			_ = f.SetCellValue(SheetReport, cell, p.ClientName)
			if centered, err := f.NewStyle(&excelize.Style{
				Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			}); err == nil {
				_ = f.SetCellStyle(SheetReport, cell, cell, centered)
			}
		}
		return
	}

	boxW, boxH := logoRegionPx(f)
	img, err := DecodeOriented(data)
	if err != nil {
		e.log.Warn().Err(err).Msg("client logo decode failed")
		return
	}
	fitted := imaging.Fit(img, boxW, boxH, imaging.Lanczos)

	canvas := imaging.New(boxW, boxH, color.Transparent)
	canvas = imaging.OverlayCenter(canvas, fitted, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		e.log.Warn().Err(err).Msg("client logo encode failed")
		return
	}
	if err := f.AddPictureFromBytes(SheetReport, cellClientLogo, &excelize.Picture{
		Extension: ".png",
		File:      buf.Bytes(),
		Format:    &excelize.GraphicOptions{},
	}); err != nil {
		e.log.Warn().Err(err).Msg("client logo insert failed")
	}
}

// logoRegionPx sizes the logo region with the header-specific conversion
// factors (6 px per width unit, 1.33 px per height point), which differ from
// the collage factors.
func logoRegionPx(f *excelize.File) (int, int) {
	startCol, startRow, _ := excelize.CellNameToCoordinates(cellClientLogo)
	endCol, endRow, _ := excelize.CellNameToCoordinates(cellClientLogoEnd)

	width := 0
	for col := startCol; col <= endCol; col++ {
		name, _ := excelize.ColumnNumberToName(col)
		w, err := f.GetColWidth(SheetReport, name)
		if err != nil || w <= 0 {
			w = defaultColWidth
		}
		width += int(w * 6)
	}
	height := 0
	for row := startRow; row <= endRow; row++ {
		h, err := f.GetRowHeight(SheetReport, row)
		if err != nil || h <= 0 {
			h = defaultRowHeight
		}
		height += int(h * 1.33)
	}
	return width, height
}

// insertSignature stretches the signature image to the width of its reserved
// footer span, capping the height at the span's, and anchors it there.
func (e *Engine) insertSignature(ctx context.Context, f *excelize.File, url string, cursor DocumentCursor) {
	if url == "" {
		return
	}
	data := e.fetcher.Fetch(ctx, url)
	if data == nil {
		return
	}
	img, err := DecodeOriented(data)
	if err != nil {
		e.log.Warn().Err(err).Msg("signature decode failed")
		return
	}

	start := cursor.Cell("D", signatureStartRow)
	end := cursor.Cell("G", signatureEndRow)
	boxW, boxH := RangeDimensionsPx(f, SheetReport, start, end)
	resized := imaging.Resize(img, boxW, 0, imaging.Lanczos)
	if resized.Bounds().Dy() > boxH {
		resized = imaging.Resize(img, 0, boxH, imaging.Lanczos)
	}

	encoded, ext, err := EncodeImage(resized, !isOpaque(img))
	if err != nil {
		e.log.Warn().Err(err).Msg("signature encode failed")
		return
	}
	if err := f.AddPictureFromBytes(SheetReport, start, &excelize.Picture{
		Extension: ext,
		File:      encoded,
		Format:    &excelize.GraphicOptions{},
	}); err != nil {
		e.log.Warn().Err(err).Msg("signature insert failed")
	}
}

// sheetMaxRow reports the last occupied row, counting both cell content and
// merged ranges (the signature region extends the sheet past the last value).
func sheetMaxRow(f *excelize.File, sheet string) int {
	max := 0
	if rows, err := f.GetRows(sheet); err == nil {
		max = len(rows)
	}
	if merges, err := f.GetMergeCells(sheet); err == nil {
		for _, m := range merges {
			if _, r, err := excelize.CellNameToCoordinates(m.GetEndAxis()); err == nil && r > max {
				max = r
			}
		}
	}
	return max
}
