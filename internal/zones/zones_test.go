package zones

import (
	"os"
	"path/filepath"
	"testing"
)

const lookupCSV = `"LocationID","Borough","Zone","service_zone"
4,Manhattan,Alphabet City,Yellow Zone
43,Manhattan,Central Park,Yellow Zone
75,Manhattan,East Harlem South,Boro Zone
116,Manhattan,Hamilton Heights,Boro Zone
127,Manhattan,Inwood,Boro Zone
141,Manhattan,Lenox Hill West,Yellow Zone
142,Manhattan,Lincoln Square East,Yellow Zone
151,Manhattan,Manhattan Valley,Yellow Zone
161,Manhattan,Midtown Center,Yellow Zone
236,Manhattan,Upper East Side North,Yellow Zone
239,Manhattan,Upper West Side South,Yellow Zone
244,Manhattan,Washington Heights South,Boro Zone
263,Manhattan,Yorkville West,Yellow Zone
7,Queens,Astoria,Boro Zone
264,Unknown,NV,N/A
`

func loadFixture(t *testing.T) *Lookup {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxi_zone_lookup.csv")
	if err := os.WriteFile(path, []byte(lookupCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	lk, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lk
}

func TestLoad(t *testing.T) {
	lk := loadFixture(t)

	z, ok := lk.Zone(161)
	if !ok || z.Name != "Midtown Center" || z.Borough != "Manhattan" {
		t.Errorf("Zone(161) = %+v, %v", z, ok)
	}
	if got := lk.Name(7); got != "Astoria" {
		t.Errorf("Name(7) = %q", got)
	}
	if got := lk.Name(999); got != "999" {
		t.Errorf("Name for unknown id = %q, want the id", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestCongestionZoneIDs(t *testing.T) {
	lk := loadFixture(t)
	ids := lk.CongestionZoneIDs()

	wantIn := []int64{4, 161, 43, 151, 141, 142, 263}
	for _, id := range wantIn {
		if _, ok := ids[id]; !ok {
			t.Errorf("zone %d (%s) should be in the congestion set", id, lk.Name(id))
		}
	}
	wantOut := []int64{236, 239, 75, 116, 244, 127, 7, 264}
	for _, id := range wantOut {
		if _, ok := ids[id]; ok {
			t.Errorf("zone %d (%s) should be outside the congestion set", id, lk.Name(id))
		}
	}
}

func TestBorderZoneIDs(t *testing.T) {
	lk := loadFixture(t)
	border := lk.BorderZoneIDs()

	// Only the Upper East/West Side zones are north of the boundary AND
	// match a border pattern; the rest of the patterns fall inside the
	// congestion set and are excluded from the border set.
	wantIn := []int64{236, 239}
	for _, id := range wantIn {
		if _, ok := border[id]; !ok {
			t.Errorf("zone %d (%s) should be a border zone", id, lk.Name(id))
		}
	}
	wantOut := []int64{43, 141, 142, 151, 263, 161, 75, 7}
	for _, id := range wantOut {
		if _, ok := border[id]; ok {
			t.Errorf("zone %d (%s) should not be a border zone", id, lk.Name(id))
		}
	}
}
