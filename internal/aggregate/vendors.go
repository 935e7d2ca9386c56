package aggregate

import (
	"sort"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// VendorVolume is one vendor's trip count over the scanned period.
type VendorVolume struct {
	VendorID   int64 `json:"vendor_id"`
	TotalTrips int64 `json:"total_trips"`
}

// TopVendors returns the topN vendors by trip volume for a year, the
// ghost-trip screening input of the audit report.
func (e *Engine) TopVendors(year, topN int) ([]VendorVolume, []models.CacheEntry, error) {
	sources, err := e.Sources(FullYear(year), nil)
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[int64]int64)
	err = e.forEachRecord(sources, Request{Scope: AllZones}, func(rec models.TripRecord) {
		counts[rec.VendorID]++
	})
	if err != nil {
		return nil, nil, err
	}

	vols := make([]VendorVolume, 0, len(counts))
	for id, n := range counts {
		vols = append(vols, VendorVolume{VendorID: id, TotalTrips: n})
	}
	sort.Slice(vols, func(i, j int) bool {
		if vols[i].TotalTrips != vols[j].TotalTrips {
			return vols[i].TotalTrips > vols[j].TotalTrips
		}
		return vols[i].VendorID < vols[j].VendorID
	})
	if topN > 0 && len(vols) > topN {
		vols = vols[:topN]
	}
	return vols, sources, nil
}

// SurchargeRevenue sums the congestion surcharge collected over a year.
func (e *Engine) SurchargeRevenue(year int) (float64, []models.CacheEntry, error) {
	sources, err := e.Sources(FullYear(year), nil)
	if err != nil {
		return 0, nil, err
	}
	var total float64
	err = e.forEachRecord(sources, Request{Scope: AllZones}, func(rec models.TripRecord) {
		total += rec.CongestionSurcharge
	})
	return total, sources, err
}
