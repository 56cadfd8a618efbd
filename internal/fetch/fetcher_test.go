package fetch

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
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsImageData(t *testing.T) {
	pad := func(b []byte) []byte { return append(b, make([]byte, 16)...) }

	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"jpeg", pad([]byte{0xFF, 0xD8, 0xFF, 0xE0}), true},
		{"png", pad([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}), true},
		{"gif87a", pad([]byte("GIF87a")), true},
		{"gif89a", pad([]byte("GIF89a")), true},
		{"bmp", pad([]byte("BM")), true},
		{"tiff little-endian", pad([]byte{0x49, 0x49, 0x2A, 0x00}), true},
		{"tiff big-endian", pad([]byte{0x4D, 0x4D, 0x00, 0x2A}), true},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), true},
		{"html", pad([]byte("<!DOCTYPE html>")), false},
		{"riff without webp tag", pad([]byte("RIFF\x10\x00\x00\x00WAVE")), false},
		{"too short", []byte{0xFF, 0xD8}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsImageData(tc.data))
		})
	}
}

func TestFetchHTTP(t *testing.T) {
	img := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(img)
		case "/error":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/text":
			_, _ = w.Write([]byte("this is definitely not an image payload"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(nil, "", time.Second, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, img, f.Fetch(ctx, srv.URL+"/ok.png"))
	assert.Nil(t, f.Fetch(ctx, srv.URL+"/error"), "non-2xx is a soft failure")
	assert.Nil(t, f.Fetch(ctx, srv.URL+"/missing"), "404 is a soft failure")
	assert.Nil(t, f.Fetch(ctx, srv.URL+"/text"), "non-image payload is rejected")
	assert.Nil(t, f.Fetch(ctx, ""), "blank ref fetches nothing")
}

type fakeObjects struct {
	bucket, key string
	data        []byte
}

func (o *fakeObjects) GetRaw(_ context.Context, bucket, key string) ([]byte, error) {
	o.bucket, o.key = bucket, key
	return o.data, nil
}

func TestFetchObjectRefs(t *testing.T) {
	img := testPNG(t)
	objects := &fakeObjects{data: img}
	f := New(objects, "report-media", time.Second, zerolog.Nop())
	ctx := context.Background()

	got := f.Fetch(ctx, "s3://other-bucket/photos/a.png")
	assert.Equal(t, img, got)
	assert.Equal(t, "other-bucket", objects.bucket)
	assert.Equal(t, "photos/a.png", objects.key)

	got = f.Fetch(ctx, "https://report-media.s3.amazonaws.com/photos/b.png")
	assert.Equal(t, img, got)
	assert.Equal(t, "report-media", objects.bucket)
	assert.Equal(t, "photos/b.png", objects.key)
}

func TestFetchObjectRefWithoutStore(t *testing.T) {
	f := New(nil, "", time.Second, zerolog.Nop())
	assert.Nil(t, f.Fetch(context.Background(), "s3://bucket/key.png"))
}
