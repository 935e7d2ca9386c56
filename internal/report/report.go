package report

import (
	"context"
	"log"
	"path/filepath"
	"sort"

	"github.com/nycdatalab/tlcaudit/internal/aggregate"
	"github.com/nycdatalab/tlcaudit/internal/models"
)

// Summary is everything the audit report presents. Periods that had to be
// imputed are listed so the report can disclose which figures rest on
// estimated rather than observed data.
type Summary struct {
	Year             int                         `json:"year"`
	TotalSurcharge   float64                     `json:"total_surcharge"`
	Elasticity       *aggregate.ElasticityResult `json:"elasticity,omitempty"`
	ElasticityNote   string                      `json:"elasticity_note,omitempty"`
	TopVendors       []aggregate.VendorVolume    `json:"top_vendors"`
	Recommendation   string                      `json:"recommendation"`
	SyntheticPeriods []string                    `json:"synthetic_periods"`
	PartialNotes     []string                    `json:"partial_notes,omitempty"`
}

// Builder assembles the audit summary from the aggregation engine.
type Builder struct {
	cfg    *models.Config
	engine *aggregate.Engine
}

func NewBuilder(cfg *models.Config, engine *aggregate.Engine) *Builder {
	return &Builder{cfg: cfg, engine: engine}
}

const recommendation = "Increase the congestion surcharge modestly during rainy days to " +
	"offset demand surges, and prioritize audits of vendors with disproportionate " +
	"ghost-trip signatures. Introduce automated GPS anomaly detection in TLC " +
	"compliance systems."

// Build computes the summary for a year. A failed sub-analysis does not
// abort the report; it is recorded as a partial-data note with the period
// that failed.
func (b *Builder) Build(ctx context.Context, year int) (*Summary, error) {
	if !b.cfg.SupportsYear(year) {
		return nil, models.NewConfigurationError("year %d is not in the supported set %v", year, b.cfg.SupportedYears)
	}

	s := &Summary{Year: year, Recommendation: recommendation}
	synthetic := make(map[string]struct{})

	total, sources, err := b.engine.SurchargeRevenue(year)
	if err != nil {
		return nil, err
	}
	s.TotalSurcharge = total
	collectSynthetic(synthetic, sources)

	vendors, sources, err := b.engine.TopVendors(year, b.cfg.Report.TopVendors)
	if err != nil {
		return nil, err
	}
	s.TopVendors = vendors
	collectSynthetic(synthetic, sources)

	res, err := b.engine.Aggregate(ctx, aggregate.Request{
		Periods:   []aggregate.Period{aggregate.FullYear(year)},
		Statistic: aggregate.Elasticity,
		Dimension: aggregate.ByDay,
		Value:     aggregate.TripCount,
	})
	if err != nil {
		// Elasticity rests on an external weather feed; its failure
		// degrades the report instead of killing it.
		log.Printf("warning: elasticity for %d unavailable: %v", year, err)
		s.ElasticityNote = "Unavailable: " + err.Error()
		s.PartialNotes = append(s.PartialNotes, "rain elasticity could not be computed")
	} else {
		s.Elasticity = res.Elasticity
		collectSynthetic(synthetic, res.Sources)
	}

	for label := range synthetic {
		s.SyntheticPeriods = append(s.SyntheticPeriods, label)
	}
	sort.Strings(s.SyntheticPeriods)
	return s, nil
}

// Generate builds the summary, renders the PDF, and optionally uploads it.
func (b *Builder) Generate(ctx context.Context, year int, uploader Uploader) (string, error) {
	summary, err := b.Build(ctx, year)
	if err != nil {
		return "", err
	}

	path := b.cfg.Report.OutputFile
	if err := RenderPDF(summary, path); err != nil {
		return "", err
	}
	log.Printf("audit report written: %s", path)

	if b.cfg.Report.UploadEnabled && uploader != nil {
		if err := b.upload(ctx, uploader, path); err != nil {
			return path, err
		}
	}
	return path, nil
}

func (b *Builder) upload(ctx context.Context, uploader Uploader, path string) error {
	if err := UploadFile(ctx, uploader, filepath.ToSlash(path)); err != nil {
		return err
	}
	log.Printf("audit report uploaded to bucket %s", b.cfg.Report.BucketName)
	return nil
}

func collectSynthetic(set map[string]struct{}, sources []models.CacheEntry) {
	for _, src := range sources {
		if src.Synthetic {
			set[src.PeriodLabel()] = struct{}{}
		}
	}
}
