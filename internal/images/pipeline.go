// Package images resolves gallery URLs into embeddable assets: bounded
// parallel fetch, decode, aspect-preserving downscale and JPEG re-encode.
package images

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"formulary/internal/domain"
	"formulary/internal/monitoring"
)

// pointsPerPixel converts a resized pixel height into the display row height.
const pointsPerPixel = 0.75

// Config bounds one export's image work.
type Config struct {
	Workers   int
	Timeout   time.Duration
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Asset is a fetched, resized, re-encoded image ready for embedding.
type Asset struct {
	Data      []byte
	Width     int
	Height    int
	RowHeight float64
}

// Result is the outcome for one gallery row. Found distinguishes a usable
// asset from the absent case so call sites must handle both; an absent result
// leaves the cell blank at default row height.
type Result struct {
	Image domain.GalleryImage
	Asset Asset
	Found bool
}

// Pipeline fetches and prepares gallery images. It holds no state across
// exports; every FetchAll call is self-contained.
type Pipeline struct {
	cfg     Config
	client  *http.Client
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewPipeline(cfg Config, m *monitoring.Metrics, l *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Pipeline{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		logger:  l,
	}
}

// FetchAll resolves every gallery row through a bounded worker pool and
// returns the results reassembled into final-table row order, since cell
// anchoring and row heights are positional. Per-row failures degrade to an
// absent result; only cancellation of ctx fails the call as a whole.
func (p *Pipeline) FetchAll(ctx context.Context, gallery []domain.GalleryImage) ([]Result, error) {
	results := make([]Result, len(gallery))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := p.cfg.Workers
	if workers > len(gallery) {
		workers = len(gallery)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.resolve(ctx, gallery[i])
			}
		}()
	}

feed:
	for i := range gallery {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Image.Row < results[j].Image.Row
	})
	return results, nil
}

// resolve turns one gallery row into an asset or an absent result. Fetch and
// decode failures are logged and counted, never raised.
func (p *Pipeline) resolve(ctx context.Context, img domain.GalleryImage) Result {
	res := Result{Image: img}
	if img.URL == "" {
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, img.URL, nil)
	if err != nil {
		p.degrade("bad_url", img, err)
		return res
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.degrade("fetch_failed", img, err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.degrade("bad_status", img, nil)
		return res
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.degrade("read_failed", img, err)
		return res
	}

	src, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		p.degrade("decode_failed", img, err)
		return res
	}

	// Thumbnail semantics: scale down to fit the bounds, never up.
	thumb := imaging.Fit(src, p.cfg.MaxWidth, p.cfg.MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.cfg.Quality)); err != nil {
		p.degrade("encode_failed", img, err)
		return res
	}

	bounds := thumb.Bounds()
	res.Asset = Asset{
		Data:      buf.Bytes(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		RowHeight: float64(bounds.Dy()) * pointsPerPixel,
	}
	res.Found = true
	p.metrics.IncImagesTotal()
	return res
}

func (p *Pipeline) degrade(reason string, img domain.GalleryImage, err error) {
	p.metrics.IncImageErrsTotal(reason)
	p.logger.Warn("image degraded to blank cell",
		zap.String("reason", reason),
		zap.String("url", img.URL),
		zap.Int("row", img.Row),
		zap.Error(err))
}
