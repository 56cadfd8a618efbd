package excel

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nurpe/delivery-reports/internal/fetch"
)

// Collage is a single composed raster holding every source photo of one
// region, ready to be embedded as one picture object.
type Collage struct {
	Data   []byte
	Ext    string // ".png" or ".jpg"
	Width  int
	Height int
}

// Composer builds photo collages. Fetching and resizing of the individual
// images runs on a bounded worker pool with a per-image timeout; a failed or
// slow image leaves its grid slot blank without delaying the others.
type Composer struct {
	fetcher *fetch.Fetcher
	workers int
	timeout time.Duration
	log     zerolog.Logger
}

func NewComposer(fetcher *fetch.Fetcher, workers int, timeout time.Duration, log zerolog.Logger) *Composer {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Composer{fetcher: fetcher, workers: workers, timeout: timeout, log: log}
}

// collageGrid is the chosen layout for n images inside a pixel bounding box.
type collageGrid struct {
	cols, rows   int
	cellW, cellH int
	usedW, usedH int
}

// bestGrid searches cols in 1..n for the layout maximizing per-cell image
// size; ties go to the grid whose aspect ratio is closest to the box's.
func bestGrid(n, boxW, boxH int) collageGrid {
	boxAspect := float64(boxW) / float64(boxH)
	bestCols, bestRows := 1, n
	bestSize := 0
	bestAspect := 0.0

	for cols := 1; cols <= n; cols++ {
		rows := (n + cols - 1) / cols
		cellW := boxW / cols
		cellH := boxH / rows
		size := cellW
		if cellH < size {
			size = cellH
		}
		aspect := float64(cols*cellW) / float64(rows*cellH)
		better := size > bestSize ||
			(size == bestSize && abs(aspect-boxAspect) < abs(bestAspect-boxAspect))
		if better {
			bestCols, bestRows = cols, rows
			bestSize = size
			bestAspect = aspect
		}
	}

	cellW := boxW / bestCols
	cellH := boxH / bestRows

	// The occupied extent spans min(n, cols) columns and every row.
	usedW := cellW * bestCols
	if n < bestCols {
		usedW = cellW * n
	}
	usedH := cellH * bestRows

	return collageGrid{
		cols: bestCols, rows: bestRows,
		cellW: cellW, cellH: cellH,
		usedW: usedW, usedH: usedH,
	}
}

type slotImage struct {
	img      *image.NRGBA
	hasAlpha bool
}

// Compose fetches every URL, lays the images out on the best grid for the
// given pixel bounding box and returns the encoded collage. Failed images
// leave their slot blank. Returns nil when there are no URLs or the box is
// degenerate.
func (c *Composer) Compose(ctx context.Context, urls []string, boxW, boxH int) *Collage {
	n := len(urls)
	if n == 0 || boxW <= 0 || boxH <= 0 {
		return nil
	}

	grid := bestGrid(n, boxW, boxH)
	if grid.cellW <= 0 || grid.cellH <= 0 {
		return nil
	}

	slots := make([]slotImage, n)
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for idx, url := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			imgCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			slots[idx] = c.prepareSlot(imgCtx, url, grid.cellW, grid.cellH)
		}(idx, url)
	}
	wg.Wait()

	canvas := image.NewNRGBA(image.Rect(0, 0, grid.cellW*grid.cols, grid.cellH*grid.rows))
	hasAlpha := false
	for idx, slot := range slots {
		if slot.img == nil {
			continue
		}
		if slot.hasAlpha {
			hasAlpha = true
		}
		w := slot.img.Bounds().Dx()
		h := slot.img.Bounds().Dy()
		x := (idx%grid.cols)*grid.cellW + (grid.cellW-w)/2
		y := (idx/grid.cols)*grid.cellH + (grid.cellH-h)/2
		draw.Draw(canvas, image.Rect(x, y, x+w, y+h), slot.img, slot.img.Bounds().Min, draw.Over)
	}

	// Crop to the occupied extent so a partially filled last row does not
	// leave trailing blank space in the document.
	cropped := imaging.Crop(canvas, image.Rect(0, 0, grid.usedW, grid.usedH))

	data, ext, err := EncodeImage(cropped, hasAlpha)
	if err != nil {
		c.log.Warn().Err(err).Msg("collage encode failed")
		return nil
	}
	return &Collage{Data: data, Ext: ext, Width: grid.usedW, Height: grid.usedH}
}

// prepareSlot fetches, orients and downsizes one image to fit its grid cell.
// Any failure yields an empty slot.
func (c *Composer) prepareSlot(ctx context.Context, url string, cellW, cellH int) slotImage {
	data := c.fetcher.Fetch(ctx, url)
	if data == nil {
		return slotImage{}
	}
	img, err := DecodeOriented(data)
	if err != nil {
		c.log.Warn().Err(err).Str("url", url).Msg("image decode failed")
		return slotImage{}
	}

	hasAlpha := !isOpaque(img)
	if img.Bounds().Dx() > cellW || img.Bounds().Dy() > cellH {
		img = imaging.Fit(img, cellW, cellH, imaging.Lanczos)
	}
	return slotImage{img: imaging.Clone(img), hasAlpha: hasAlpha}
}

// DecodeOriented decodes image bytes and applies the EXIF orientation so
// phone photos render upright.
func DecodeOriented(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img, nil
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img, nil
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img, nil
	}
	switch orientation {
	case 2:
		img = imaging.FlipH(img)
	case 3:
		img = imaging.Rotate180(img)
	case 4:
		img = imaging.FlipV(img)
	case 5:
		img = imaging.Transpose(img)
	case 6:
		img = imaging.Rotate270(img)
	case 7:
		img = imaging.Transverse(img)
	case 8:
		img = imaging.Rotate90(img)
	}
	return img, nil
}

// EncodeImage encodes losslessly when transparency must survive, otherwise
// as JPEG quality 85 to bound file size. JPEG output is flattened onto white
// first since the format has no alpha channel.
func EncodeImage(img image.Image, hasAlpha bool) ([]byte, string, error) {
	var buf bytes.Buffer
	if hasAlpha {
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".png", nil
	}

	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), ".jpg", nil
}

func isOpaque(img image.Image) bool {
	if op, ok := img.(interface{ Opaque() bool }); ok {
		return op.Opaque()
	}
	return true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
