package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/nycdatalab/tlcaudit/internal/tripdata"
	"github.com/nycdatalab/tlcaudit/internal/weather"
	"github.com/nycdatalab/tlcaudit/internal/zones"
)

// WeatherSource supplies daily precipitation for elasticity requests.
type WeatherSource interface {
	DaysForYear(ctx context.Context, year int) ([]weather.Day, error)
}

// Engine runs aggregation requests over the cache. It holds no mutable
// state of its own; identical cache state and request give identical
// results.
type Engine struct {
	cfg     *models.Config
	store   *cache.Store
	loader  *tripdata.Loader
	lookup  *zones.Lookup
	weather WeatherSource

	congestion map[int64]struct{}
	border     map[int64]struct{}
}

func NewEngine(cfg *models.Config, store *cache.Store, loader *tripdata.Loader, lookup *zones.Lookup, ws WeatherSource) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      store,
		loader:     loader,
		lookup:     lookup,
		weather:    ws,
		congestion: lookup.CongestionZoneIDs(),
		border:     lookup.BorderZoneIDs(),
	}
}

// Result is the output of one aggregation: a table keyed by the grouping
// dimension plus the cache entries it consumed, so callers can disclose
// synthetic periods.
type Result struct {
	Table       dataframe.DataFrame
	Sources     []models.CacheEntry
	Correlation *CorrelationResult
	Elasticity  *ElasticityResult
}

// SyntheticPeriods lists the consumed periods that were imputed rather
// than observed.
func (r *Result) SyntheticPeriods() []string {
	var out []string
	for _, src := range r.Sources {
		if src.Synthetic {
			out = append(out, src.PeriodLabel())
		}
	}
	return out
}

// Sources resolves every cache entry a period touches, failing fast with
// DataMissingError if a required month is absent and not imputed.
func (e *Engine) Sources(period Period, classes []models.VehicleClass) ([]models.CacheEntry, error) {
	if len(classes) == 0 {
		classes = models.AllClasses
	}
	var entries []models.CacheEntry
	for _, ym := range period.Months() {
		for _, class := range classes {
			entry := e.store.Entry(ym.Year, ym.Month, class)
			if !entry.Present {
				return nil, &models.DataMissingError{Year: ym.Year, Month: ym.Month, Class: class}
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Aggregate runs a request and returns the grouped table.
func (e *Engine) Aggregate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch req.Statistic {
	case Mean, Sum, Count:
		return e.grouped(req)
	case PctChange:
		return e.pctChange(req)
	case Correlation:
		return e.correlation(req)
	case Elasticity:
		return e.elasticity(ctx, req)
	}
	return nil, models.NewRequestError("unknown statistic %q", req.Statistic)
}

type groupAcc struct {
	key   string
	order int64
	label string
	sum   float64
	sum2  float64
	count int64
}

// grouped computes mean, sum or count of the value column per group.
func (e *Engine) grouped(req Request) (*Result, error) {
	sources, err := e.Sources(req.Periods[0], req.Classes)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*groupAcc)
	err = e.forEachRecord(sources, req, func(rec models.TripRecord) {
		key, order, label := e.groupKey(req, rec)
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{key: key, order: order, label: label}
			groups[key] = acc
		}
		acc.sum += req.Value.extract(rec)
		acc.count++
	})
	if err != nil {
		return nil, err
	}

	accs := sortedGroups(groups)
	labels := make([]string, len(accs))
	values := make([]float64, len(accs))
	counts := make([]int, len(accs))
	for i, acc := range accs {
		labels[i] = acc.label
		counts[i] = int(acc.count)
		switch req.Statistic {
		case Mean:
			values[i] = acc.sum / float64(acc.count)
		case Sum:
			values[i] = acc.sum
		default:
			values[i] = float64(acc.count)
		}
	}

	table := dataframe.New(
		series.New(labels, series.String, string(req.Dimension)),
		series.New(values, series.Float, valueColumn(req)),
		series.New(counts, series.Int, "trips"),
	)
	return &Result{Table: table, Sources: sources}, nil
}

// pctChange compares the same grouped value across two calendar-aligned
// periods.
func (e *Engine) pctChange(req Request) (*Result, error) {
	oldTotals, oldSources, err := e.groupTotals(req, req.Periods[0])
	if err != nil {
		return nil, err
	}
	newTotals, newSources, err := e.groupTotals(req, req.Periods[1])
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*groupAcc)
	for k, acc := range oldTotals {
		merged[k] = &groupAcc{key: k, order: acc.order, label: acc.label}
	}
	for k, acc := range newTotals {
		if _, ok := merged[k]; !ok {
			merged[k] = &groupAcc{key: k, order: acc.order, label: acc.label}
		}
	}

	accs := sortedGroups(merged)
	labels := make([]string, len(accs))
	oldVals := make([]float64, len(accs))
	newVals := make([]float64, len(accs))
	changes := make([]float64, len(accs))
	pcts := make([]float64, len(accs))

	oldCol := fmt.Sprintf("%s_%s", valueColumn(req), req.Periods[0].Label())
	newCol := fmt.Sprintf("%s_%s", valueColumn(req), req.Periods[1].Label())

	for i, acc := range accs {
		key := acc.key
		var oldV, newV float64
		if a, ok := oldTotals[key]; ok {
			oldV = a.sum
		}
		if a, ok := newTotals[key]; ok {
			newV = a.sum
		}
		labels[i] = acc.label
		oldVals[i] = oldV
		newVals[i] = newV
		changes[i] = newV - oldV
		pcts[i] = pctChangeOf(oldV, newV)
	}

	table := dataframe.New(
		series.New(labels, series.String, string(req.Dimension)),
		series.New(oldVals, series.Float, oldCol),
		series.New(newVals, series.Float, newCol),
		series.New(changes, series.Float, "change"),
		series.New(pcts, series.Float, "pct_change"),
	)
	return &Result{Table: table, Sources: append(oldSources, newSources...)}, nil
}

// correlation groups both value columns, then correlates the group means.
func (e *Engine) correlation(req Request) (*Result, error) {
	sources, err := e.Sources(req.Periods[0], req.Classes)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*groupAcc)
	err = e.forEachRecord(sources, req, func(rec models.TripRecord) {
		key, order, label := e.groupKey(req, rec)
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{key: key, order: order, label: label}
			groups[key] = acc
		}
		acc.sum += req.Value.extract(rec)
		acc.sum2 += req.Value2.extract(rec)
		acc.count++
	})
	if err != nil {
		return nil, err
	}

	accs := sortedGroups(groups)
	labels := make([]string, len(accs))
	xs := make([]float64, len(accs))
	ys := make([]float64, len(accs))
	counts := make([]int, len(accs))
	for i, acc := range accs {
		labels[i] = acc.label
		xs[i] = acc.sum / float64(acc.count)
		ys[i] = acc.sum2 / float64(acc.count)
		counts[i] = int(acc.count)
	}

	corr, err := pearson(xs, ys)
	if err != nil {
		return nil, models.NewRequestError("correlation: %v", err)
	}

	table := dataframe.New(
		series.New(labels, series.String, string(req.Dimension)),
		series.New(xs, series.Float, string(req.Value)),
		series.New(ys, series.Float, string(req.Value2)),
		series.New(counts, series.Int, "trips"),
	)
	return &Result{Table: table, Sources: sources, Correlation: corr}, nil
}

// groupTotals sums the value column per group over one period.
func (e *Engine) groupTotals(req Request, period Period) (map[string]*groupAcc, []models.CacheEntry, error) {
	sources, err := e.Sources(period, req.Classes)
	if err != nil {
		return nil, nil, err
	}
	groups := make(map[string]*groupAcc)
	err = e.forEachRecord(sources, req, func(rec models.TripRecord) {
		key, order, label := e.groupKey(req, rec)
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{key: key, order: order, label: label}
			groups[key] = acc
		}
		acc.sum += req.Value.extract(rec)
		acc.count++
	})
	if err != nil {
		return nil, nil, err
	}
	return groups, sources, nil
}

// forEachRecord streams every record the sources hold, applying the
// request's time cutoff and zone scope.
func (e *Engine) forEachRecord(sources []models.CacheEntry, req Request, fn func(models.TripRecord)) error {
	for _, src := range sources {
		err := e.loader.ReadBatches(src.Path, src.Class, func(batch []models.TripRecord) error {
			for _, rec := range batch {
				if !req.After.IsZero() && rec.PickupTime.Before(req.After) {
					continue
				}
				// Guard against rows whose timestamps fall outside the
				// file's nominal month.
				if rec.PickupTime.Year() != src.Year || int(rec.PickupTime.Month()) != src.Month {
					continue
				}
				if !e.inScope(req.Scope, rec) {
					continue
				}
				fn(rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) inScope(scope ZoneScope, rec models.TripRecord) bool {
	switch scope {
	case CongestionOnly:
		return contains(e.congestion, rec.PickupLoc) && contains(e.congestion, rec.DropoffLoc)
	case PickupInside:
		return contains(e.congestion, rec.PickupLoc)
	case DropoffInside:
		return contains(e.congestion, rec.DropoffLoc)
	case EnteringZone:
		return !contains(e.congestion, rec.PickupLoc) && contains(e.congestion, rec.DropoffLoc)
	case BorderDropoff:
		return contains(e.border, rec.DropoffLoc)
	default:
		return true
	}
}

var weekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// groupKey derives the map key, sort order and display label for a record
// under the request's dimension.
func (e *Engine) groupKey(req Request, rec models.TripRecord) (key string, order int64, label string) {
	switch req.Dimension {
	case ByZone:
		id := rec.PickupLoc
		if req.ZoneOn == DropoffZone {
			id = rec.DropoffLoc
		}
		return fmt.Sprintf("z%d", id), id, fmt.Sprintf("%d", id)
	case ByHour:
		h := int64(rec.PickupTime.Hour())
		return fmt.Sprintf("h%02d", h), h, fmt.Sprintf("%02d", h)
	case ByWeekday:
		// Monday-first ordering.
		idx := (int(rec.PickupTime.Weekday()) + 6) % 7
		return fmt.Sprintf("w%d", idx), int64(idx), weekdayNames[idx]
	case ByDay:
		d := rec.PickupTime.Format("2006-01-02")
		return d, rec.PickupTime.Unix() / 86400, d
	default: // ByMonth
		m := rec.PickupTime.Format("2006-01")
		return m, int64(rec.PickupTime.Year())*12 + int64(rec.PickupTime.Month()), m
	}
}

func valueColumn(req Request) string {
	if req.Value == TripCount || req.Value == "" {
		return "trip_count"
	}
	return string(req.Value)
}

func sortedGroups(groups map[string]*groupAcc) []*groupAcc {
	accs := make([]*groupAcc, 0, len(groups))
	for _, acc := range groups {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].order != accs[j].order {
			return accs[i].order < accs[j].order
		}
		return accs[i].label < accs[j].label
	})
	return accs
}

func contains(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}

func pctChangeOf(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / old * 100
}
