package aggregate

import (
	"context"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/nycdatalab/tlcaudit/internal/models"
)

// BorderEffect measures the change in drop-offs in the zones just north of
// the congestion boundary, Q1 of yearA vs Q1 of yearB.
func (e *Engine) BorderEffect(ctx context.Context, yearA, yearB int) (*Result, error) {
	res, err := e.Aggregate(ctx, Request{
		Periods:   []Period{Q1(yearA), Q1(yearB)},
		Dimension: ByZone,
		Statistic: PctChange,
		Value:     TripCount,
		Scope:     BorderDropoff,
		ZoneOn:    DropoffZone,
	})
	if err != nil {
		return nil, err
	}

	// Attach zone names for readability.
	ids := res.Table.Col(string(ByZone)).Records()
	names := make([]string, len(ids))
	for i, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			names[i] = raw
			continue
		}
		names[i] = e.lookup.Name(id)
	}
	res.Table = res.Table.Mutate(series.New(names, series.String, "zone_name"))
	return res, nil
}

// VelocityHeatmap is the weekday-by-hour mean speed grid inside the
// congestion zone for Q1 of one year.
type VelocityHeatmap struct {
	Year     int                 `json:"year"`
	Weekdays []string            `json:"weekdays"`
	Cells    [7][24]float64      `json:"cells"`
	Counts   [7][24]int64        `json:"counts"`
	Overall  float64             `json:"overall_mph"`
	Sources  []models.CacheEntry `json:"-"`
}

// Velocity computes the Q1 congestion-zone speed heatmap for a year.
func (e *Engine) Velocity(year int, classes []models.VehicleClass) (*VelocityHeatmap, error) {
	sources, err := e.Sources(Q1(year), classes)
	if err != nil {
		return nil, err
	}

	var sums [7][24]float64
	var counts [7][24]int64
	req := Request{Scope: CongestionOnly}
	err = e.forEachRecord(sources, req, func(rec models.TripRecord) {
		speed := rec.SpeedMPH()
		if speed <= 0 {
			return
		}
		day := (int(rec.PickupTime.Weekday()) + 6) % 7
		hour := rec.PickupTime.Hour()
		sums[day][hour] += speed
		counts[day][hour]++
	})
	if err != nil {
		return nil, err
	}

	hm := &VelocityHeatmap{Year: year, Weekdays: weekdayNames, Sources: sources}
	var totalSum float64
	var totalCount int64
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			if counts[d][h] > 0 {
				hm.Cells[d][h] = sums[d][h] / float64(counts[d][h])
			}
			hm.Counts[d][h] = counts[d][h]
			totalSum += sums[d][h]
			totalCount += counts[d][h]
		}
	}
	if totalCount > 0 {
		hm.Overall = totalSum / float64(totalCount)
	}
	return hm, nil
}

// VelocityComparison holds Q1 heatmaps for two years plus the change in
// overall mean speed.
type VelocityComparison struct {
	Before *VelocityHeatmap `json:"before"`
	After  *VelocityHeatmap `json:"after"`
	Delta  float64          `json:"delta_mph"`
}

func (e *Engine) CompareVelocity(yearA, yearB int, classes []models.VehicleClass) (*VelocityComparison, error) {
	before, err := e.Velocity(yearA, classes)
	if err != nil {
		return nil, err
	}
	after, err := e.Velocity(yearB, classes)
	if err != nil {
		return nil, err
	}
	return &VelocityComparison{Before: before, After: after, Delta: after.Overall - before.Overall}, nil
}

// TipCrowdingOut tests whether the congestion surcharge displaces tips:
// monthly average surcharge vs average tip percentage for post-toll
// congestion-zone pickups, with the correlation between the two.
func (e *Engine) TipCrowdingOut(ctx context.Context, year int) (*Result, error) {
	return e.Aggregate(ctx, Request{
		Periods:   []Period{FullYear(year)},
		Dimension: ByMonth,
		Statistic: Correlation,
		Value:     Surcharge,
		Value2:    TipPercent,
		Scope:     PickupInside,
		After:     e.cfg.TollStartDate,
	})
}

// LeakageResult is the surcharge compliance audit: the share of trips
// entering the zone that actually paid, and the pickup zones with the
// highest missing-surcharge rates.
type LeakageResult struct {
	ComplianceRate float64             `json:"compliance_rate"`
	TotalLiable    int64               `json:"total_liable"`
	TotalPaid      int64               `json:"total_paid"`
	TopMissing     dataframe.DataFrame `json:"-"`
	Sources        []models.CacheEntry `json:"-"`
}

// LeakageAudit scans a year of trips ending inside the zone after the toll
// start date and reports compliance plus the top-N pickup locations by
// missing-surcharge rate.
func (e *Engine) LeakageAudit(year int, topN int) (*LeakageResult, error) {
	sources, err := e.Sources(FullYear(year), nil)
	if err != nil {
		return nil, err
	}

	type locAcc struct {
		total   int64
		missing int64
	}
	byPickup := make(map[int64]*locAcc)
	var liable, paid int64

	req := Request{Scope: DropoffInside, After: e.cfg.TollStartDate}
	err = e.forEachRecord(sources, req, func(rec models.TripRecord) {
		liable++
		if rec.CongestionSurcharge > 0 {
			paid++
		}
		acc, ok := byPickup[rec.PickupLoc]
		if !ok {
			acc = &locAcc{}
			byPickup[rec.PickupLoc] = acc
		}
		acc.total++
		if rec.CongestionSurcharge == 0 {
			acc.missing++
		}
	})
	if err != nil {
		return nil, err
	}

	type locRow struct {
		id      int64
		total   int64
		missing int64
		rate    float64
	}
	rows := make([]locRow, 0, len(byPickup))
	for id, acc := range byPickup {
		if acc.total == 0 {
			continue
		}
		rows = append(rows, locRow{
			id:      id,
			total:   acc.total,
			missing: acc.missing,
			rate:    float64(acc.missing) / float64(acc.total),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].rate != rows[j].rate {
			return rows[i].rate > rows[j].rate
		}
		return rows[i].id < rows[j].id
	})
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}

	ids := make([]string, len(rows))
	names := make([]string, len(rows))
	totals := make([]int, len(rows))
	missing := make([]int, len(rows))
	rates := make([]float64, len(rows))
	for i, r := range rows {
		ids[i] = strconv.FormatInt(r.id, 10)
		names[i] = e.lookup.Name(r.id)
		totals[i] = int(r.total)
		missing[i] = int(r.missing)
		rates[i] = r.rate
	}

	res := &LeakageResult{
		TotalLiable: liable,
		TotalPaid:   paid,
		Sources:     sources,
		TopMissing: dataframe.New(
			series.New(ids, series.String, "pickup_loc"),
			series.New(names, series.String, "zone_name"),
			series.New(totals, series.Int, "total_trips"),
			series.New(missing, series.Int, "missing_trips"),
			series.New(rates, series.Float, "missing_rate"),
		),
	}
	if liable > 0 {
		res.ComplianceRate = float64(paid) / float64(liable)
	}
	return res, nil
}

// ClassComparison is one row of the yellow-vs-green decline table.
type ClassComparison struct {
	Label     string  `json:"label"`
	CountA    int64   `json:"count_a"`
	CountB    int64   `json:"count_b"`
	Change    int64   `json:"change"`
	PctChange float64 `json:"pct_change"`
}

// YellowVsGreen compares Q1 volumes of trips entering the congestion zone
// between two years, broken down by vehicle class.
func (e *Engine) YellowVsGreen(yearA, yearB int) ([]ClassComparison, []models.CacheEntry, error) {
	countFor := func(year int, class models.VehicleClass) (int64, []models.CacheEntry, error) {
		sources, err := e.Sources(Q1(year), []models.VehicleClass{class})
		if err != nil {
			return 0, nil, err
		}
		var n int64
		req := Request{Scope: EnteringZone}
		err = e.forEachRecord(sources, req, func(models.TripRecord) { n++ })
		return n, sources, err
	}

	var out []ClassComparison
	var allSources []models.CacheEntry
	var totalA, totalB int64
	for _, class := range models.AllClasses {
		a, srcA, err := countFor(yearA, class)
		if err != nil {
			return nil, nil, err
		}
		b, srcB, err := countFor(yearB, class)
		if err != nil {
			return nil, nil, err
		}
		allSources = append(allSources, srcA...)
		allSources = append(allSources, srcB...)
		totalA += a
		totalB += b
		out = append(out, ClassComparison{
			Label:     string(class),
			CountA:    a,
			CountB:    b,
			Change:    b - a,
			PctChange: pctChangeOf(float64(a), float64(b)),
		})
	}
	out = append(out, ClassComparison{
		Label:     "total",
		CountA:    totalA,
		CountB:    totalB,
		Change:    totalB - totalA,
		PctChange: pctChangeOf(float64(totalA), float64(totalB)),
	})
	return out, allSources, nil
}
