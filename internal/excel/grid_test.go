package excel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTopLeftOf(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.MergeCell("Sheet1", "B2", "D5"))

	assert.Equal(t, "B2", TopLeftOf(f, "Sheet1", "C4"), "interior cell resolves to anchor")
	assert.Equal(t, "B2", TopLeftOf(f, "Sheet1", "B2"), "anchor resolves to itself")
	assert.Equal(t, "A1", TopLeftOf(f, "Sheet1", "A1"), "cell outside any merge is unchanged")
	assert.Equal(t, "E5", TopLeftOf(f, "Sheet1", "E5"), "cell adjacent to merge is unchanged")

	// Resolving an already-resolved reference is a fixpoint.
	anchor := TopLeftOf(f, "Sheet1", "D5")
	assert.Equal(t, anchor, TopLeftOf(f, "Sheet1", anchor))
}

func TestRangeDimensionsPx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	// A fresh file reports real defaults for untouched columns and rows, so
	// expectations are computed from the same metrics the conversion reads.
	baseW, err := f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	baseH, err := f.GetRowHeight("Sheet1", 2)
	require.NoError(t, err)

	w, h := RangeDimensionsPx(f, "Sheet1", "A1", "B2")
	assert.Equal(t, int(baseW*pxPerWidthUnit+baseW*pxPerWidthUnit), w)
	assert.Equal(t, int(baseH*pxPerHeightPt+baseH*pxPerHeightPt), h)

	require.NoError(t, f.SetColWidth("Sheet1", "A", "A", 20))
	require.NoError(t, f.SetRowHeight("Sheet1", 1, 40))
	w, h = RangeDimensionsPx(f, "Sheet1", "A1", "B2")
	assert.Equal(t, int(20*pxPerWidthUnit+baseW*pxPerWidthUnit), w)
	assert.Equal(t, int(40*pxPerHeightPt+baseH*pxPerHeightPt), h)
}

func TestAutofitRowHeight(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetColWidth("Sheet1", "A", "A", 30))

	// 34 chars per line at width 30; 100 runes wrap to 3 lines.
	AutofitRowHeight(f, "Sheet1", "A1", strings.Repeat("x", 100), 15)
	height, err := f.GetRowHeight("Sheet1", 1)
	require.NoError(t, err)
	assert.Equal(t, 45.0, height)

	// Short text never drops below the default row height.
	AutofitRowHeight(f, "Sheet1", "A2", "hi", 1.5)
	height, err = f.GetRowHeight("Sheet1", 2)
	require.NoError(t, err)
	assert.Equal(t, 15.0, height)

	// Blank lines count as one line each.
	AutofitRowHeight(f, "Sheet1", "A3", "a\n\nb", 15)
	height, err = f.GetRowHeight("Sheet1", 3)
	require.NoError(t, err)
	assert.Equal(t, 45.0, height)
}

func TestAutofitRowHeightDeterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum ", 20)
	heights := make([]float64, 0, 3)
	for i := 0; i < 3; i++ {
		f := excelize.NewFile()
		AutofitRowHeight(f, "Sheet1", "C7", text, 15)
		h, err := f.GetRowHeight("Sheet1", 7)
		require.NoError(t, err)
		heights = append(heights, h)
		f.Close()
	}
	assert.Equal(t, heights[0], heights[1])
	assert.Equal(t, heights[1], heights[2])
}

func TestAddRows(t *testing.T) {
	assert.Equal(t, "L48", AddRows("L41", 7))
	assert.Equal(t, "A3", AddRows("A3", 0))
	assert.Equal(t, "bogus", AddRows("bogus", 3))
}

func TestDocumentCursor(t *testing.T) {
	cursor := DocumentCursor{Extra: 3}
	assert.Equal(t, 21, cursor.Row(18))
	assert.Equal(t, "J47", cursor.Cell("J", 44))

	fresh := DocumentCursor{}
	assert.Equal(t, "A26", fresh.Cell("A", 26))
}
