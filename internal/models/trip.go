package models

import "time"

// VehicleClass is the TLC fleet a trip file belongs to.
type VehicleClass string

const (
	Yellow VehicleClass = "yellow"
	Green  VehicleClass = "green"
)

// AllClasses lists the vehicle classes in the fixed order used for cache
// listings and downloads.
var AllClasses = []VehicleClass{Yellow, Green}

func ParseVehicleClass(s string) (VehicleClass, error) {
	switch VehicleClass(s) {
	case Yellow, Green:
		return VehicleClass(s), nil
	}
	return "", NewConfigurationError("unknown vehicle class %q", s)
}

// TripRecord is one taxi trip in the unified schema. Yellow files use
// tpep_* timestamp columns and green files lpep_*; both are mapped onto
// this struct at load time. Immutable once loaded.
type TripRecord struct {
	VendorID            int64
	PickupTime          time.Time
	DropoffTime         time.Time
	PickupLoc           int64
	DropoffLoc          int64
	TripDistance        float64
	Fare                float64
	TotalAmount         float64
	CongestionSurcharge float64
	TipAmount           float64
	Class               VehicleClass
}

// DurationHours returns the trip duration in hours.
func (t TripRecord) DurationHours() float64 {
	return t.DropoffTime.Sub(t.PickupTime).Hours()
}

// SpeedMPH returns the average trip speed, or 0 for non-positive durations.
func (t TripRecord) SpeedMPH() float64 {
	h := t.DurationHours()
	if h <= 0 {
		return 0
	}
	return t.TripDistance / h
}

// TipPercent returns the tip as a percentage of the fare, or 0 when the
// fare is non-positive.
func (t TripRecord) TipPercent() float64 {
	if t.Fare <= 0 {
		return 0
	}
	return t.TipAmount / t.Fare * 100
}

// CacheEntry maps a (year, month, class) key to a local file. Entries are
// replaced wholesale, never mutated in place.
type CacheEntry struct {
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	Class     VehicleClass `json:"class"`
	Path      string       `json:"path"`
	Present   bool         `json:"present"`
	Synthetic bool         `json:"synthetic"`
}

// PeriodLabel renders the entry's calendar period, e.g. "yellow 2025-12".
func (e CacheEntry) PeriodLabel() string {
	return string(e.Class) + " " + e.MonthLabel()
}

func (e CacheEntry) MonthLabel() string {
	return time.Date(e.Year, time.Month(e.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Zone is one row of the TLC taxi zone lookup table.
type Zone struct {
	LocationID  int64
	Borough     string
	Name        string
	ServiceZone string
}
