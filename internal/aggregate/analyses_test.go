package aggregate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

func TestBorderEffectAttachesZoneNames(t *testing.T) {
	f := newFixture(t, stubWeather{})
	f.seedQuarter(t, 2024, models.Yellow, repeatTrips(100, trip(2024, 1, 8, 9, 7, 236)))
	f.seedQuarter(t, 2024, models.Green, nil)
	f.seedQuarter(t, 2025, models.Yellow, repeatTrips(150, trip(2025, 1, 8, 9, 7, 236)))
	f.seedQuarter(t, 2025, models.Green, nil)

	res, err := f.engine.BorderEffect(context.Background(), 2024, 2025)
	if err != nil {
		t.Fatalf("BorderEffect: %v", err)
	}
	if n := res.Table.Nrow(); n != 1 {
		t.Fatalf("table has %d rows, want 1:\n%v", n, res.Table)
	}
	if name := res.Table.Col("zone_name").Records()[0]; name != "Upper East Side North" {
		t.Errorf("zone_name = %q", name)
	}
	pct := res.Table.Col("pct_change").Float()[0]
	if math.Abs(pct-50.0) > 1e-9 {
		t.Errorf("pct_change = %v, want 50", pct)
	}
}

func TestVelocityHeatmap(t *testing.T) {
	f := newFixture(t, stubWeather{})
	// 2025-01-06 is a Monday.
	fast := trip(2025, 1, 6, 8, 161, 162) // 9 mph
	slow := trip(2025, 1, 6, 8, 161, 162)
	slow.DropoffTime = slow.PickupTime.Add(60 * time.Minute) // 3 mph
	outside := trip(2025, 1, 6, 8, 7, 236)                   // not in the zone

	f.seedQuarter(t, 2025, models.Yellow, []models.TripRecord{fast, slow, outside})

	hm, err := f.engine.Velocity(2025, []models.VehicleClass{models.Yellow})
	if err != nil {
		t.Fatalf("Velocity: %v", err)
	}
	if hm.Counts[0][8] != 2 {
		t.Errorf("Monday 8am count = %d, want 2", hm.Counts[0][8])
	}
	if math.Abs(hm.Cells[0][8]-6.0) > 1e-9 {
		t.Errorf("Monday 8am mean = %v, want 6", hm.Cells[0][8])
	}
	if math.Abs(hm.Overall-6.0) > 1e-9 {
		t.Errorf("overall = %v, want 6", hm.Overall)
	}

	var total int64
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			total += hm.Counts[d][h]
		}
	}
	if total != 2 {
		t.Errorf("total in-zone trips = %d, want 2 (outside trip must be excluded)", total)
	}
}

func TestCompareVelocity(t *testing.T) {
	f := newFixture(t, stubWeather{})
	slow := trip(2024, 1, 10, 9, 161, 162)
	slow.DropoffTime = slow.PickupTime.Add(36 * time.Minute) // 5 mph
	f.seedQuarter(t, 2024, models.Yellow, []models.TripRecord{slow})
	f.seedQuarter(t, 2025, models.Yellow, []models.TripRecord{trip(2025, 1, 10, 9, 161, 162)}) // 9 mph

	cmp, err := f.engine.CompareVelocity(2024, 2025, []models.VehicleClass{models.Yellow})
	if err != nil {
		t.Fatalf("CompareVelocity: %v", err)
	}
	if math.Abs(cmp.Delta-4.0) > 1e-9 {
		t.Errorf("delta = %v, want 4", cmp.Delta)
	}
}

// seedYear fills all twelve months for one class, with the given trips in
// January and the rest empty.
func (f *fixture) seedYear(t *testing.T, year int, class models.VehicleClass, janTrips []models.TripRecord) {
	t.Helper()
	f.seed(t, year, 1, class, false, janTrips)
	for m := 2; m <= 12; m++ {
		f.seed(t, year, m, class, false, nil)
	}
}

func TestLeakageAudit(t *testing.T) {
	f := newFixture(t, stubWeather{})

	paid := trip(2025, 1, 10, 9, 7, 161)
	paid.CongestionSurcharge = 2.5
	unpaid := trip(2025, 1, 10, 9, 236, 161)
	preToll := trip(2025, 1, 2, 9, 236, 161) // before the toll start

	trips := append(repeatTrips(6, paid), repeatTrips(4, unpaid)...)
	trips = append(trips, preToll)
	f.seedYear(t, 2025, models.Yellow, trips)
	f.seedYear(t, 2025, models.Green, nil)

	res, err := f.engine.LeakageAudit(2025, 3)
	if err != nil {
		t.Fatalf("LeakageAudit: %v", err)
	}
	if res.TotalLiable != 10 {
		t.Errorf("liable = %d, want 10 (pre-toll trip excluded)", res.TotalLiable)
	}
	if res.TotalPaid != 6 {
		t.Errorf("paid = %d, want 6", res.TotalPaid)
	}
	if math.Abs(res.ComplianceRate-0.6) > 1e-9 {
		t.Errorf("compliance = %v, want 0.6", res.ComplianceRate)
	}

	names := res.TopMissing.Col("zone_name").Records()
	rates := res.TopMissing.Col("missing_rate").Float()
	if len(names) != 2 {
		t.Fatalf("top missing has %d rows, want 2:\n%v", len(names), res.TopMissing)
	}
	// Zone 236 missed every surcharge, zone 7 none.
	if names[0] != "Upper East Side North" || rates[0] != 1.0 {
		t.Errorf("top row = %q at %v, want Upper East Side North at 1.0", names[0], rates[0])
	}
	if names[1] != "Astoria" || rates[1] != 0.0 {
		t.Errorf("second row = %q at %v, want Astoria at 0.0", names[1], rates[1])
	}
}

func TestYellowVsGreen(t *testing.T) {
	f := newFixture(t, stubWeather{})

	entering := func(year, n int, class models.VehicleClass) []models.TripRecord {
		out := repeatTrips(n, trip(year, 1, 10, 9, 7, 161))
		for i := range out {
			out[i].Class = class
		}
		return out
	}
	f.seedQuarter(t, 2024, models.Yellow, entering(2024, 10, models.Yellow))
	f.seedQuarter(t, 2024, models.Green, entering(2024, 8, models.Green))
	f.seedQuarter(t, 2025, models.Yellow, entering(2025, 9, models.Yellow))
	f.seedQuarter(t, 2025, models.Green, entering(2025, 4, models.Green))

	rows, _, err := f.engine.YellowVsGreen(2024, 2025)
	if err != nil {
		t.Fatalf("YellowVsGreen: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want yellow+green+total", len(rows))
	}
	if rows[0].Label != "yellow" || rows[0].CountA != 10 || rows[0].CountB != 9 {
		t.Errorf("yellow row = %+v", rows[0])
	}
	if rows[1].Label != "green" || rows[1].CountA != 8 || rows[1].CountB != 4 {
		t.Errorf("green row = %+v", rows[1])
	}
	if math.Abs(rows[1].PctChange-(-50.0)) > 1e-9 {
		t.Errorf("green pct change = %v, want -50", rows[1].PctChange)
	}
	total := rows[2]
	if total.Label != "total" || total.CountA != 18 || total.CountB != 13 {
		t.Errorf("total row = %+v", total)
	}
}

func TestTipCrowdingOut(t *testing.T) {
	f := newFixture(t, stubWeather{})

	// Higher surcharge months get lower tip percentages.
	addMonth := func(month int, surcharge, tip float64) []models.TripRecord {
		proto := trip(2025, month, 10, 9, 161, 162)
		proto.CongestionSurcharge = surcharge
		proto.TipAmount = tip
		return repeatTrips(5, proto)
	}
	f.seed(t, 2025, 1, models.Yellow, false, addMonth(1, 0.75, 4.5))
	f.seed(t, 2025, 2, models.Yellow, false, addMonth(2, 1.50, 3.0))
	f.seed(t, 2025, 3, models.Yellow, false, addMonth(3, 2.50, 1.5))
	for m := 4; m <= 12; m++ {
		f.seed(t, 2025, m, models.Yellow, false, nil)
	}
	f.seedYear(t, 2025, models.Green, nil)

	res, err := f.engine.TipCrowdingOut(context.Background(), 2025)
	if err != nil {
		t.Fatalf("TipCrowdingOut: %v", err)
	}
	if res.Correlation == nil {
		t.Fatal("no correlation result")
	}
	if res.Correlation.R >= 0 {
		t.Errorf("r = %v, want negative", res.Correlation.R)
	}
	if res.Table.Nrow() != 3 {
		t.Errorf("table has %d rows, want 3 months:\n%v", res.Table.Nrow(), res.Table)
	}
}

func TestTopVendorsAndRevenue(t *testing.T) {
	f := newFixture(t, stubWeather{})

	byVendor := func(vendor int64, n int) []models.TripRecord {
		proto := trip(2025, 1, 10, 9, 161, 162)
		proto.VendorID = vendor
		proto.CongestionSurcharge = 2.5
		return repeatTrips(n, proto)
	}
	trips := append(byVendor(2, 30), byVendor(1, 20)...)
	trips = append(trips, byVendor(6, 5)...)
	f.seedYear(t, 2025, models.Yellow, trips)
	f.seedYear(t, 2025, models.Green, nil)

	vendors, _, err := f.engine.TopVendors(2025, 2)
	if err != nil {
		t.Fatalf("TopVendors: %v", err)
	}
	if len(vendors) != 2 {
		t.Fatalf("got %d vendors, want 2", len(vendors))
	}
	if vendors[0].VendorID != 2 || vendors[0].TotalTrips != 30 {
		t.Errorf("top vendor = %+v", vendors[0])
	}
	if vendors[1].VendorID != 1 || vendors[1].TotalTrips != 20 {
		t.Errorf("second vendor = %+v", vendors[1])
	}

	total, _, err := f.engine.SurchargeRevenue(2025)
	if err != nil {
		t.Fatalf("SurchargeRevenue: %v", err)
	}
	if math.Abs(total-55*2.5) > 1e-9 {
		t.Errorf("revenue = %v, want %v", total, 55*2.5)
	}
}
