// Package export orchestrates one formulary export: load records, normalize,
// compose the table, resolve gallery images and serialize the workbook.
package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"formulary/internal/domain"
	"formulary/internal/formulary"
	"formulary/internal/images"
	"formulary/internal/monitoring"
	"formulary/internal/xlsx"
)

// RecordSource supplies the ordered raw records for a dataset. Authorization
// for the dataset is the source's concern.
type RecordSource interface {
	Records(ctx context.Context, datasetID string) ([]domain.RawRecord, error)
}

// Service produces complete formulary documents. All pipeline state is
// request-scoped; the service itself only carries wiring.
type Service struct {
	source   RecordSource
	pipeline *images.Pipeline
	remap    domain.HostRemap
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func NewService(src RecordSource, p *images.Pipeline, remap domain.HostRemap, m *monitoring.Metrics, l *zap.Logger) *Service {
	return &Service{
		source:   src,
		pipeline: p,
		remap:    remap,
		metrics:  m,
		logger:   l,
	}
}

// Export builds the complete workbook for a dataset. Row-level image failures
// degrade to blank cells inside the pipeline; any error returned here means
// no document was produced — partial documents are never returned.
func (s *Service) Export(ctx context.Context, datasetID string) ([]byte, error) {
	raw, err := s.source.Records(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load records for dataset %s: %w", datasetID, err)
	}

	normalized, err := formulary.Normalize(raw)
	if err != nil {
		return nil, err
	}

	comp := formulary.Compose(normalized, s.remap)

	results, err := s.pipeline.FetchAll(ctx, comp.Gallery)
	if err != nil {
		return nil, fmt.Errorf("resolve gallery images: %w", err)
	}

	doc, err := xlsx.Write(comp, results)
	if err != nil {
		return nil, err
	}

	s.metrics.IncExportsTotal()
	s.logger.Info("formulary exported",
		zap.String("dataset", datasetID),
		zap.Int("records", len(raw)),
		zap.Int("rows", len(comp.Table.Rows)),
		zap.Int("images", len(comp.Gallery)))
	return doc, nil
}
