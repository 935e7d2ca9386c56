package aggregate

import (
	"context"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/nycdatalab/tlcaudit/internal/models"
)

// ElasticityResult reports how trip volume responds to precipitation: the
// regression of daily congestion-zone trip counts against daily rainfall.
type ElasticityResult struct {
	RegressionResult
	Classification string `json:"classification"`
	LogTransform   bool   `json:"log_transform"`
	WettestMonth   string `json:"wettest_month"`
}

// Classified returns "elastic" when the coefficient clears the threshold.
func classify(r, threshold float64) string {
	if math.Abs(r) > threshold {
		return "elastic"
	}
	return "inelastic"
}

// elasticity joins daily congestion-zone pickup counts with the weather
// series for the period's year and regresses count on precipitation,
// optionally log1p-transformed.
func (e *Engine) elasticity(ctx context.Context, req Request) (*Result, error) {
	period := req.Periods[0]
	if period.StartYear != period.EndYear {
		return nil, models.NewRequestError("elasticity period must stay within one calendar year, got %s", period.Label())
	}
	year := period.StartYear

	sources, err := e.Sources(period, req.Classes)
	if err != nil {
		return nil, err
	}

	scope := req.Scope
	if scope == AllZones || scope == "" {
		scope = PickupInside
	}

	counts := make(map[string]*groupAcc)
	dayReq := req
	dayReq.Dimension = ByDay
	dayReq.Scope = scope
	err = e.forEachRecord(sources, dayReq, func(rec models.TripRecord) {
		key, order, label := e.groupKey(dayReq, rec)
		acc, ok := counts[key]
		if !ok {
			acc = &groupAcc{key: key, order: order, label: label}
			counts[key] = acc
		}
		acc.count++
	})
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, &models.DataMissingError{Year: year, Month: period.StartMonth, Class: classOrAny(req.Classes)}
	}

	days, err := e.weather.DaysForYear(ctx, year)
	if err != nil {
		return nil, err
	}

	precipByDate := make(map[string]float64, len(days))
	precipByMonth := make(map[string]float64)
	for _, d := range days {
		precipByDate[d.Date.Format("2006-01-02")] = d.PrecipMM
		precipByMonth[d.Date.Format("2006-01")] += d.PrecipMM
	}

	var dates []string
	var precip, tripCounts []float64
	for _, acc := range sortedGroups(counts) {
		mm, ok := precipByDate[acc.label]
		if !ok {
			continue
		}
		dates = append(dates, acc.label)
		precip = append(precip, mm)
		tripCounts = append(tripCounts, float64(acc.count))
	}
	if len(dates) < 3 {
		return nil, models.NewRequestError("elasticity needs at least 3 overlapping weather/trip days, got %d", len(dates))
	}

	xs := make([]float64, len(precip))
	ys := make([]float64, len(tripCounts))
	for i := range precip {
		if e.cfg.Elasticity.LogTransform {
			// log1p keeps zero-precipitation days in the fit.
			xs[i] = math.Log1p(precip[i])
			ys[i] = math.Log1p(tripCounts[i])
		} else {
			xs[i] = precip[i]
			ys[i] = tripCounts[i]
		}
	}

	reg, err := linearRegression(xs, ys)
	if err != nil {
		return nil, models.NewRequestError("elasticity regression: %v", err)
	}

	wettest := ""
	var wettestMM float64
	for month, mm := range precipByMonth {
		if mm > wettestMM || wettest == "" {
			wettest, wettestMM = month, mm
		}
	}

	table := dataframe.New(
		series.New(dates, series.String, "date"),
		series.New(precip, series.Float, "precip_mm"),
		series.New(tripCounts, series.Float, "trip_count"),
	)
	return &Result{
		Table:   table,
		Sources: sources,
		Elasticity: &ElasticityResult{
			RegressionResult: *reg,
			Classification:   classify(reg.R, e.cfg.Elasticity.Threshold),
			LogTransform:     e.cfg.Elasticity.LogTransform,
			WettestMonth:     wettest,
		},
	}, nil
}

func classOrAny(classes []models.VehicleClass) models.VehicleClass {
	if len(classes) > 0 {
		return classes[0]
	}
	return models.Yellow
}
