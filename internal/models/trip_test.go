package models

import (
	"errors"
	"testing"
	"time"
)

func TestSpeedMPH(t *testing.T) {
	pickup := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	rec := TripRecord{
		PickupTime:   pickup,
		DropoffTime:  pickup.Add(30 * time.Minute),
		TripDistance: 6,
	}
	if got := rec.SpeedMPH(); got != 12 {
		t.Errorf("SpeedMPH = %v, want 12", got)
	}

	rec.DropoffTime = rec.PickupTime
	if got := rec.SpeedMPH(); got != 0 {
		t.Errorf("SpeedMPH for zero duration = %v, want 0", got)
	}
}

func TestTipPercent(t *testing.T) {
	rec := TripRecord{Fare: 20, TipAmount: 5}
	if got := rec.TipPercent(); got != 25 {
		t.Errorf("TipPercent = %v, want 25", got)
	}
	rec.Fare = 0
	if got := rec.TipPercent(); got != 0 {
		t.Errorf("TipPercent with zero fare = %v, want 0", got)
	}
}

func TestParseVehicleClass(t *testing.T) {
	for _, s := range []string{"yellow", "green"} {
		if _, err := ParseVehicleClass(s); err != nil {
			t.Errorf("ParseVehicleClass(%q) returned %v", s, err)
		}
	}

	_, err := ParseVehicleClass("fhv")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("ParseVehicleClass(fhv) error = %v, want ConfigurationError", err)
	}
}

func TestCacheEntryPeriodLabel(t *testing.T) {
	e := CacheEntry{Year: 2025, Month: 12, Class: Yellow}
	if got := e.PeriodLabel(); got != "yellow 2025-12" {
		t.Errorf("PeriodLabel = %q, want %q", got, "yellow 2025-12")
	}
	e = CacheEntry{Year: 2024, Month: 3, Class: Green}
	if got := e.PeriodLabel(); got != "green 2024-03" {
		t.Errorf("PeriodLabel = %q, want %q", got, "green 2024-03")
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	fe := &FetchError{Year: 2025, Month: 2, Class: Yellow, Err: inner}
	if !errors.Is(fe, inner) {
		t.Error("FetchError should unwrap to its cause")
	}

	var target *FetchError
	wrapped := error(fe)
	if !errors.As(wrapped, &target) {
		t.Error("errors.As should match FetchError")
	}
	if target.Month != 2 {
		t.Errorf("unwrapped month = %d, want 2", target.Month)
	}
}
