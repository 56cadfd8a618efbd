package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ObjectGetter retrieves raw object bytes from bucket storage. Implemented by
// the S3 store; nil when the deployment has no object storage.
type ObjectGetter interface {
	GetRaw(ctx context.Context, bucket, key string) ([]byte, error)
}

// Fetcher retrieves remote image assets. Every failure mode — network error,
// non-2xx status, payload that is not a recognizable image — returns nil bytes
// with a warning log. A missing photo must never abort document generation.
type Fetcher struct {
	client  *http.Client
	objects ObjectGetter
	bucket  string
	log     zerolog.Logger
}

func New(objects ObjectGetter, bucket string, timeout time.Duration, log zerolog.Logger) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		objects: objects,
		bucket:  bucket,
		log:     log,
	}
}

// Fetch resolves ref in order: s3:// scheme, HTTP URL pointing at the
// configured bucket domain, plain HTTP GET. Returns nil on any failure.
func (f *Fetcher) Fetch(ctx context.Context, ref string) []byte {
	if strings.TrimSpace(ref) == "" {
		return nil
	}

	var data []byte
	switch {
	case strings.HasPrefix(ref, "s3://"):
		data = f.fetchObject(ctx, ref, true)
	case f.bucket != "" && strings.Contains(ref, f.bucket):
		data = f.fetchObject(ctx, ref, false)
	default:
		data = f.fetchHTTP(ctx, ref)
	}
	if data == nil {
		return nil
	}

	if !IsImageData(data) {
		f.log.Warn().Str("ref", ref).Msg("fetched payload is not a recognized image")
		return nil
	}
	return data
}

func (f *Fetcher) fetchObject(ctx context.Context, ref string, scheme bool) []byte {
	if f.objects == nil {
		f.log.Warn().Str("ref", ref).Msg("object storage reference without a configured object store")
		return nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		f.log.Warn().Err(err).Str("ref", ref).Msg("unparseable object reference")
		return nil
	}
	bucket := parsed.Host
	if !scheme {
		// https://bucket.s3.amazonaws.com/key style URL.
		bucket = strings.Split(parsed.Host, ".")[0]
	}
	key := strings.TrimPrefix(parsed.Path, "/")

	data, err := f.objects.GetRaw(ctx, bucket, key)
	if err != nil {
		f.log.Warn().Err(err).Str("ref", ref).Msg("object fetch failed")
		return nil
	}
	return data
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		f.log.Warn().Err(err).Str("ref", ref).Msg("invalid image URL")
		return nil
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn().Err(err).Str("ref", ref).Msg("image fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Warn().Int("status", resp.StatusCode).Str("ref", ref).Msg("image fetch returned non-2xx status")
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn().Err(err).Str("ref", ref).Msg("image body read failed")
		return nil
	}
	return data
}

// imageSignatures holds the magic-byte prefixes of the accepted formats:
// JPEG, PNG, GIF (87a/89a), BMP and TIFF in both byte orders.
var imageSignatures = [][]byte{
	{0xFF, 0xD8, 0xFF},
	{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	[]byte("BM"),
	{0x49, 0x49, 0x2A, 0x00},
	{0x4D, 0x4D, 0x00, 0x2A},
}

// IsImageData checks the payload against the known image file signatures.
// WEBP needs both the RIFF container marker and the WEBP tag.
func IsImageData(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	if bytes.Contains(data[:12], []byte("RIFF")) && bytes.Contains(data[:12], []byte("WEBP")) {
		return true
	}
	return false
}
