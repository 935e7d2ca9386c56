package tripdata

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaswdr/faker"
	"github.com/nycdatalab/tlcaudit/internal/models"
)

func sampleTrips(n int, class models.VehicleClass) []models.TripRecord {
	f := faker.NewWithSeed(rand.NewSource(7))
	out := make([]models.TripRecord, n)
	for i := range out {
		pickup := time.Date(2025, 1, 1+i%28, f.IntBetween(0, 23), f.IntBetween(0, 59), 0, 0, time.UTC)
		out[i] = models.TripRecord{
			VendorID:            int64(f.IntBetween(1, 3)),
			PickupTime:          pickup,
			DropoffTime:         pickup.Add(time.Duration(f.IntBetween(10, 40)) * time.Minute),
			PickupLoc:           int64(f.IntBetween(100, 120)),
			DropoffLoc:          int64(f.IntBetween(100, 120)),
			TripDistance:        f.Float64(2, 1, 8),
			Fare:                f.Float64(2, 5, 40),
			TotalAmount:         f.Float64(2, 6, 50),
			CongestionSurcharge: 2.5,
			TipAmount:           f.Float64(2, 0, 8),
			Class:               class,
		}
	}
	return out
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, class := range models.AllClasses {
		class := class
		t.Run(string(class), func(t *testing.T) {
			trips := sampleTrips(50, class)
			path := filepath.Join(t.TempDir(), "month.parquet")
			rows, err := WriteMonth(path, class, trips)
			if err != nil {
				t.Fatalf("WriteMonth: %v", err)
			}
			if rows != 50 {
				t.Errorf("rows written = %d, want 50", rows)
			}

			loader := NewLoader()
			got, err := loader.ReadMonth(models.CacheEntry{Path: path, Class: class})
			if err != nil {
				t.Fatalf("ReadMonth: %v", err)
			}
			if len(got) != len(trips) {
				t.Fatalf("read %d records, want %d", len(got), len(trips))
			}
			for i, rec := range got {
				want := trips[i]
				if !rec.PickupTime.Equal(want.PickupTime) || !rec.DropoffTime.Equal(want.DropoffTime) {
					t.Fatalf("record %d timestamps = %v/%v, want %v/%v",
						i, rec.PickupTime, rec.DropoffTime, want.PickupTime, want.DropoffTime)
				}
				if rec.PickupLoc != want.PickupLoc || rec.Fare != want.Fare {
					t.Fatalf("record %d = %+v, want %+v", i, rec, want)
				}
				if rec.Class != class {
					t.Fatalf("record %d class = %q, want %q", i, rec.Class, class)
				}
			}
		})
	}
}

func TestReadBatchesSplitsFile(t *testing.T) {
	trips := sampleTrips(40, models.Yellow)
	path := filepath.Join(t.TempDir(), "month.parquet")
	if _, err := WriteMonth(path, models.Yellow, trips); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	var batches, total int
	err := loader.ReadBatches(path, models.Yellow, func(batch []models.TripRecord) error {
		batches++
		total += len(batch)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadBatches: %v", err)
	}
	if batches != loader.BatchCount {
		t.Errorf("batches = %d, want %d", batches, loader.BatchCount)
	}
	if total != len(trips) {
		t.Errorf("total records = %d, want %d", total, len(trips))
	}
}

func TestReadBatchesUnknownClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "month.parquet")
	if _, err := WriteMonth(path, models.Yellow, nil); err != nil {
		t.Fatal(err)
	}
	err := NewLoader().ReadBatches(path, "fhv", func([]models.TripRecord) error { return nil })
	if err == nil {
		t.Error("unknown class should fail")
	}
}

func TestFilter(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	ok := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(15 * time.Minute),
		TripDistance: 3, Fare: 15,
	}
	teleporter := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(30 * time.Second),
		TripDistance: 0.2, Fare: 45,
	}
	tooFast := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(10 * time.Minute),
		TripDistance: 20, Fare: 30, // 120 mph
	}
	zeroDistance := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(10 * time.Minute),
		TripDistance: 0, Fare: 10,
	}
	zeroFare := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(10 * time.Minute),
		TripDistance: 2, Fare: 0,
	}
	backwards := models.TripRecord{
		PickupTime: base, DropoffTime: base.Add(-time.Minute),
		TripDistance: 2, Fare: 10,
	}
	shortCheap := models.TripRecord{
		// Short but cheap: plausible, kept.
		PickupTime: base, DropoffTime: base.Add(45 * time.Second),
		TripDistance: 0.3, Fare: 5,
	}

	in := []models.TripRecord{ok, teleporter, tooFast, zeroDistance, zeroFare, backwards, shortCheap}
	got := Filter(in)
	if len(got) != 2 {
		t.Fatalf("Filter kept %d records, want 2: %+v", len(got), got)
	}
	if got[0].Fare != ok.Fare || got[1].Fare != shortCheap.Fare {
		t.Errorf("Filter kept the wrong records: %+v", got)
	}
}
