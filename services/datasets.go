package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

// DatasetService converts and samples cleaned datasets between formats.
type DatasetService struct {
	logger *utils.Logger
	opts   storage.LoadOptions
}

func NewDatasetService(logger *utils.Logger, opts storage.LoadOptions) *DatasetService {
	return &DatasetService{logger: logger, opts: opts}
}

// Convert rewrites src in the format implied by dst's extension. Either side
// may be any supported file format; src may also be a database source.
func (s *DatasetService) Convert(ctx context.Context, src, dst string) (int, error) {
	t, err := storage.Load(ctx, src, s.opts)
	if err != nil {
		return 0, err
	}
	if err := storage.WriteTableFile(dst, t.All().Rows, models.SchemaFor(t)); err != nil {
		return 0, err
	}
	s.logger.Info("[dataset] Converted %d rows: %s → %s", t.Len(), src, dst)
	return t.Len(), nil
}

// Sample writes n randomly chosen rows of src to dst, keeping their
// original order. The same seed always picks the same rows.
func (s *DatasetService) Sample(ctx context.Context, src, dst string, n int, seed uint64) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("sample: size must be positive, got %d", n)
	}
	t, err := storage.Load(ctx, src, s.opts)
	if err != nil {
		return 0, err
	}
	rows := SampleApps(t.All().Rows, n, seed)
	if err := storage.WriteTableFile(dst, rows, models.SchemaFor(t)); err != nil {
		return 0, err
	}
	s.logger.Info("[dataset] Sampled %d of %d rows into %s (seed %d)", len(rows), t.Len(), dst, seed)
	return len(rows), nil
}

// SampleApps picks min(n, len(apps)) records without replacement.
func SampleApps(apps []*models.App, n int, seed uint64) []*models.App {
	if n >= len(apps) {
		out := make([]*models.App, len(apps))
		copy(out, apps)
		return out
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := rng.Perm(len(apps))[:n]
	sort.Ints(idx)
	out := make([]*models.App, n)
	for i, j := range idx {
		out[i] = apps[j]
	}
	return out
}
