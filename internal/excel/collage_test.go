package excel

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-reports/internal/fetch"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBestGridProperties(t *testing.T) {
	for n := 1; n <= 12; n++ {
		grid := bestGrid(n, 600, 300)

		assert.GreaterOrEqual(t, grid.cols*grid.rows, n, "n=%d: grid must hold all images", n)
		assert.Less(t, (grid.rows-1)*grid.cols, n, "n=%d: last row must not be empty", n)
		assert.LessOrEqual(t, grid.cols, n)

		want := grid.cellW * n
		if n > grid.cols {
			want = grid.cellW * grid.cols
		}
		assert.Equal(t, want, grid.usedW, "n=%d", n)
		assert.Equal(t, grid.cellH*grid.rows, grid.usedH, "n=%d", n)
	}
}

func TestBestGridSingleImageFillsBox(t *testing.T) {
	grid := bestGrid(1, 400, 200)
	assert.Equal(t, 1, grid.cols)
	assert.Equal(t, 1, grid.rows)
	assert.Equal(t, 400, grid.usedW)
	assert.Equal(t, 200, grid.usedH)
}

func TestComposeWithFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(pngBytes(t, 10, 10, color.RGBA{R: 200, A: 255}))
	}))
	defer srv.Close()

	fetcher := fetch.New(nil, "", time.Second, zerolog.Nop())
	composer := NewComposer(fetcher, 2, time.Second, zerolog.Nop())

	urls := []string{srv.URL + "/a.png", srv.URL + "/missing.png", srv.URL + "/b.png"}
	collage := composer.Compose(context.Background(), urls, 300, 200)

	require.NotNil(t, collage, "one failed image must not sink the collage")
	grid := bestGrid(len(urls), 300, 200)
	assert.Equal(t, grid.usedW, collage.Width)
	assert.Equal(t, grid.usedH, collage.Height)
	assert.Equal(t, ".jpg", collage.Ext, "opaque sources flatten to jpeg")

	decoded, _, err := image.Decode(bytes.NewReader(collage.Data))
	require.NoError(t, err)
	assert.Equal(t, collage.Width, decoded.Bounds().Dx())
	assert.Equal(t, collage.Height, decoded.Bounds().Dy())
}

func TestComposeEmptyAndDegenerate(t *testing.T) {
	fetcher := fetch.New(nil, "", time.Second, zerolog.Nop())
	composer := NewComposer(fetcher, 2, time.Second, zerolog.Nop())

	assert.Nil(t, composer.Compose(context.Background(), nil, 300, 200))
	assert.Nil(t, composer.Compose(context.Background(), []string{"http://x/a.png"}, 0, 200))
}

func TestEncodeImage(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			opaque.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}

	data, ext, err := EncodeImage(opaque, false)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}))

	data, ext, err = EncodeImage(opaque, true)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)
	assert.True(t, bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}))
}

func TestDecodeOriented(t *testing.T) {
	img, err := DecodeOriented(pngBytes(t, 6, 3, color.White))
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	_, err = DecodeOriented([]byte("not an image"))
	assert.Error(t, err)
}
