// Package pdf converts populated report workbooks into paginated PDFs by
// shelling out to an external converter (LibreOffice headless by default).
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/delivery-reports/internal/storage"
)

// Converter runs the external spreadsheet-to-PDF conversion. The workbook is
// copied from the store into a scratch directory, converted there, and the
// resulting PDF uploaded next to it under the PDF subdirectory.
type Converter struct {
	store   storage.Store
	binary  string
	subdir  string
	timeout time.Duration
	log     zerolog.Logger
}

func NewConverter(store storage.Store, binary, pdfSubdir string, timeout time.Duration, log zerolog.Logger) *Converter {
	if binary == "" {
		binary = "libreoffice"
	}
	return &Converter{
		store:   store,
		binary:  binary,
		subdir:  pdfSubdir,
		timeout: timeout,
		log:     log,
	}
}

// Convert converts the workbook at excelKey and returns the storage key of
// the produced PDF. A nonzero converter exit status or a missing output file
// is fatal.
func (c *Converter) Convert(ctx context.Context, excelKey string) (string, error) {
	excelName := path.Base(excelKey)
	pdfName := strings.TrimSuffix(excelName, path.Ext(excelName)) + ".pdf"

	data, err := c.store.Open(ctx, excelKey)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", excelKey, err)
	}

	scratch := filepath.Join(os.TempDir(), "delivery-reports-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	localExcel := filepath.Join(scratch, excelName)
	if err := os.WriteFile(localExcel, data, 0o644); err != nil {
		return "", fmt.Errorf("stage workbook: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.binary,
		"--headless", "--convert-to", "pdf", "--outdir", scratch, localExcel)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("converter %s failed: %w\noutput: %s", c.binary, err, output)
	}

	pdfData, err := os.ReadFile(filepath.Join(scratch, pdfName))
	if err != nil {
		return "", fmt.Errorf("converter produced no output for %s: %w\noutput: %s", excelKey, err, output)
	}

	pdfKey := path.Join(c.subdir, pdfName)
	if err := c.store.Save(ctx, pdfKey, pdfData); err != nil {
		return "", fmt.Errorf("save pdf %s: %w", pdfKey, err)
	}
	c.log.Info().Str("excel", excelKey).Str("pdf", pdfKey).Msg("workbook converted")
	return pdfKey, nil
}
