package impute

import (
	"log"
	"math/rand"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/nycdatalab/tlcaudit/internal/tripdata"
)

// Imputer derives a synthetic month for periods the publisher has not
// released, by weighted-sampling the same calendar month from the most
// recent prior years with real data. The result is written into the cache
// flagged synthetic so downstream reporting can disclose the substitution.
type Imputer struct {
	cfg    *models.Config
	store  *cache.Store
	loader *tripdata.Loader
}

func NewImputer(cfg *models.Config, store *cache.Store, loader *tripdata.Loader) *Imputer {
	return &Imputer{cfg: cfg, store: store, loader: loader}
}

// Impute builds synthetic entries for every configured class in the target
// month. It refuses to overwrite real data unless force-overwrite is set.
func (im *Imputer) Impute(targetYear, targetMonth int) ([]models.CacheEntry, error) {
	if !im.cfg.SupportsYear(targetYear) {
		return nil, models.NewConfigurationError("year %d is not in the supported set %v", targetYear, im.cfg.SupportedYears)
	}
	if targetMonth < 1 || targetMonth > 12 {
		return nil, models.NewConfigurationError("month %d out of range", targetMonth)
	}

	classes, err := im.cfg.Classes()
	if err != nil {
		return nil, err
	}

	var entries []models.CacheEntry
	for _, class := range classes {
		entry, err := im.imputeClass(targetYear, targetMonth, class)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (im *Imputer) imputeClass(year, month int, class models.VehicleClass) (models.CacheEntry, error) {
	existing := im.store.Entry(year, month, class)
	if existing.Present && !existing.Synthetic && !im.cfg.Impute.ForceOverwrite {
		return models.CacheEntry{}, models.NewConfigurationError(
			"real data already cached for %s, refusing to impute without force-overwrite", existing.PeriodLabel())
	}

	sources := im.sourceEntries(year, month, class)
	if len(sources) == 0 {
		return models.CacheEntry{}, &models.DataMissingError{Year: year - 1, Month: month, Class: class}
	}

	pools := make([][]models.TripRecord, 0, len(sources))
	for _, src := range sources {
		records, err := im.loader.ReadMonth(src)
		if err != nil {
			return models.CacheEntry{}, err
		}
		pools = append(pools, records)
	}

	sampled := im.weightedSample(pools)
	for i := range sampled {
		sampled[i] = shiftToYear(sampled[i], year)
	}

	if _, err := im.store.YearDir(year); err != nil {
		return models.CacheEntry{}, err
	}
	path := im.store.Path(year, month, class)
	rows, err := tripdata.WriteMonth(path, class, sampled)
	if err != nil {
		return models.CacheEntry{}, err
	}
	if err := im.store.MarkComplete(path, true, rows); err != nil {
		return models.CacheEntry{}, err
	}

	entry := im.store.Entry(year, month, class)
	log.Printf("imputed %s from %d prior year(s), %d rows", entry.PeriodLabel(), len(sources), rows)
	return entry, nil
}

// sourceEntries returns up to the two most recent prior years holding real
// (non-synthetic) data for the same calendar month, newest first.
func (im *Imputer) sourceEntries(year, month int, class models.VehicleClass) []models.CacheEntry {
	var sources []models.CacheEntry
	for y := year - 1; len(sources) < 2; y-- {
		if !im.cfg.SupportsYear(y) {
			break
		}
		e := im.store.Entry(y, month, class)
		if e.Present && !e.Synthetic {
			sources = append(sources, e)
		}
	}
	return sources
}

// weightedSample draws with replacement from the source pools. The first
// pool (most recent year) carries the prior-year weight, the second the
// earlier-year weight; a single pool gets full weight. The combined count
// is scaled by the configured growth factor. Fixed seed keeps the output
// reproducible.
func (im *Imputer) weightedSample(pools [][]models.TripRecord) []models.TripRecord {
	weights := []float64{im.cfg.Impute.PriorYearWt, im.cfg.Impute.EarlierYearWt}
	if len(pools) == 1 {
		weights = []float64{1.0}
	}

	rnd := rand.New(rand.NewSource(im.cfg.Impute.Seed))

	var want float64
	for i, pool := range pools {
		want += float64(len(pool)) * weights[i]
	}
	n := int(want * im.cfg.Impute.GrowthFactor)

	var combined []models.TripRecord
	for i, pool := range pools {
		if len(pool) == 0 {
			continue
		}
		take := int(float64(len(pool)) * weights[i])
		for j := 0; j < take; j++ {
			combined = append(combined, pool[rnd.Intn(len(pool))])
		}
	}
	if len(combined) == 0 {
		return nil
	}

	out := make([]models.TripRecord, n)
	for i := range out {
		out[i] = combined[rnd.Intn(len(combined))]
	}
	return out
}

// shiftToYear moves a record's timestamps into the target year, keeping
// month, day and time of day. Day 29 of a source February is clamped.
func shiftToYear(rec models.TripRecord, year int) models.TripRecord {
	rec.PickupTime = shiftTime(rec.PickupTime, year)
	rec.DropoffTime = shiftTime(rec.DropoffTime, year)
	if !rec.DropoffTime.After(rec.PickupTime) {
		rec.DropoffTime = rec.PickupTime.Add(time.Minute)
	}
	return rec
}

func shiftTime(t time.Time, year int) time.Time {
	day := t.Day()
	if t.Month() == time.February && day == 29 {
		day = 28
	}
	return time.Date(year, t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
