package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"formulary/internal/domain"
	"formulary/internal/monitoring"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	return NewPipeline(Config{
		Workers:   4,
		Timeout:   5 * time.Second,
		MaxWidth:  512,
		MaxHeight: 384,
		Quality:   85,
	}, metrics, zap.NewNop())
}

func galleryRow(row int, url string) domain.GalleryImage {
	return domain.GalleryImage{
		Ref:   domain.GalleryRef{Group: 0, Member: row, Image: 0},
		Row:   row,
		Label: "Tylenol tablet (500 mg)",
		URL:   url,
	}
}

func TestFetchAllResolvesAndReencodes(t *testing.T) {
	small := pngBytes(t, 100, 80)
	large := pngBytes(t, 1024, 768)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small.png":
			w.Write(small)
		case "/large.png":
			w.Write(large)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	p := testPipeline(t)
	results, err := p.FetchAll(context.Background(), []domain.GalleryImage{
		galleryRow(0, ts.URL+"/small.png"),
		galleryRow(1, ts.URL+"/large.png"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Small images are never scaled up.
	require.True(t, results[0].Found)
	assert.Equal(t, 100, results[0].Asset.Width)
	assert.Equal(t, 80, results[0].Asset.Height)
	assert.InDelta(t, 60.0, results[0].Asset.RowHeight, 0.001)

	// Large images shrink to fit 512x384 preserving aspect ratio.
	require.True(t, results[1].Found)
	assert.Equal(t, 512, results[1].Asset.Width)
	assert.Equal(t, 384, results[1].Asset.Height)
	assert.InDelta(t, 288.0, results[1].Asset.RowHeight, 0.001)

	// Re-encoded output is JPEG.
	for _, res := range results {
		decoded, err := jpeg.Decode(bytes.NewReader(res.Asset.Data))
		require.NoError(t, err)
		assert.Equal(t, res.Asset.Width, decoded.Bounds().Dx())
	}
}

func TestFetchAllDegradesPerRowFailures(t *testing.T) {
	ok := pngBytes(t, 64, 64)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(ok)
		case "/garbage":
			w.Write([]byte("this is not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	p := testPipeline(t)
	results, err := p.FetchAll(context.Background(), []domain.GalleryImage{
		galleryRow(0, ts.URL+"/missing.png"), // 404
		galleryRow(1, ts.URL+"/garbage"),     // decode failure
		galleryRow(2, ""),                    // no URL at all
		galleryRow(3, ts.URL+"/ok.png"),
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.False(t, results[0].Found)
	assert.False(t, results[1].Found)
	assert.False(t, results[2].Found)
	assert.True(t, results[3].Found)
}

func TestFetchAllReassemblesRowOrder(t *testing.T) {
	img := pngBytes(t, 32, 32)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stagger responses so completion order differs from row order.
		if r.URL.Path == "/slow.png" {
			time.Sleep(50 * time.Millisecond)
		}
		w.Write(img)
	}))
	defer ts.Close()

	p := testPipeline(t)
	gallery := []domain.GalleryImage{
		galleryRow(2, ts.URL+"/fast.png"),
		galleryRow(0, ts.URL+"/slow.png"),
		galleryRow(1, ts.URL+"/fast.png"),
	}
	results, err := p.FetchAll(context.Background(), gallery)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, i, res.Image.Row)
	}
}

func TestFetchAllPerFetchTimeoutDegradesStalledRows(t *testing.T) {
	img := pngBytes(t, 48, 48)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stalled.png" {
			// Stall far past the fetch timeout; the aborted request
			// releases the handler.
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
			return
		}
		w.Write(img)
	}))
	defer ts.Close()

	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	p := NewPipeline(Config{
		Workers:   2,
		Timeout:   100 * time.Millisecond,
		MaxWidth:  512,
		MaxHeight: 384,
		Quality:   85,
	}, metrics, zap.NewNop())

	start := time.Now()
	results, err := p.FetchAll(context.Background(), []domain.GalleryImage{
		galleryRow(0, ts.URL+"/stalled.png"),
		galleryRow(1, ts.URL+"/ok.png"),
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, results, 2)

	// The stalled row degrades on its own timeout instead of holding the
	// pipeline open; the healthy row still resolves.
	assert.False(t, results[0].Found)
	assert.True(t, results[1].Found)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestFetchAllEmptyGallery(t *testing.T) {
	p := testPipeline(t)
	results, err := p.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFetchAllCancelledContextFailsWhole(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testPipeline(t)
	_, err := p.FetchAll(ctx, []domain.GalleryImage{
		galleryRow(0, ts.URL+"/a.png"),
	})
	require.ErrorIs(t, err, context.Canceled)
}
