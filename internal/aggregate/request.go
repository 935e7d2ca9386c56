package aggregate

import (
	"fmt"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// Dimension is the grouping axis of an aggregation request.
type Dimension string

const (
	ByZone    Dimension = "zone"
	ByHour    Dimension = "hour"
	ByWeekday Dimension = "weekday"
	ByDay     Dimension = "day"
	ByMonth   Dimension = "month"
)

// Statistic selects the computation applied per group.
type Statistic string

const (
	Mean        Statistic = "mean"
	Sum         Statistic = "sum"
	Count       Statistic = "count"
	PctChange   Statistic = "pct_change"
	Correlation Statistic = "correlation"
	Elasticity  Statistic = "elasticity"
)

// Value names a numeric column derived from a trip record.
type Value string

const (
	TripCount  Value = "count"
	Speed      Value = "speed"
	TipPercent Value = "tip_percent"
	Surcharge  Value = "surcharge"
	Fare       Value = "fare"
	Distance   Value = "distance"
)

func (v Value) extract(r models.TripRecord) float64 {
	switch v {
	case Speed:
		return r.SpeedMPH()
	case TipPercent:
		return r.TipPercent()
	case Surcharge:
		return r.CongestionSurcharge
	case Fare:
		return r.Fare
	case Distance:
		return r.TripDistance
	default:
		return 1
	}
}

// ZoneScope restricts trips by their relation to the congestion zone.
type ZoneScope string

const (
	AllZones       ZoneScope = "all"
	CongestionOnly ZoneScope = "congestion"     // pickup and dropoff inside
	PickupInside   ZoneScope = "pickup_inside"  // pickup inside the zone
	DropoffInside  ZoneScope = "dropoff_inside" // dropoff inside the zone
	EnteringZone   ZoneScope = "entering"       // pickup outside, dropoff inside
	BorderDropoff  ZoneScope = "border_dropoff" // dropoff in a border zone
)

// ZoneField selects which end of the trip a zone grouping keys on.
type ZoneField string

const (
	PickupZone  ZoneField = "pickup"
	DropoffZone ZoneField = "dropoff"
)

// YearMonth identifies a single cached month.
type YearMonth struct {
	Year  int
	Month int
}

// Period is an inclusive month range.
type Period struct {
	StartYear  int
	StartMonth int
	EndYear    int
	EndMonth   int
}

// Q1 is the January-March quarter of a year.
func Q1(year int) Period {
	return Period{StartYear: year, StartMonth: 1, EndYear: year, EndMonth: 3}
}

// FullYear covers all twelve months.
func FullYear(year int) Period {
	return Period{StartYear: year, StartMonth: 1, EndYear: year, EndMonth: 12}
}

// Months expands the period into its calendar months in ascending order.
func (p Period) Months() []YearMonth {
	var out []YearMonth
	y, m := p.StartYear, p.StartMonth
	for {
		out = append(out, YearMonth{Year: y, Month: m})
		if y == p.EndYear && m == p.EndMonth {
			break
		}
		m++
		if m > 12 {
			m = 1
			y++
		}
		if y > p.EndYear || len(out) > 600 {
			break
		}
	}
	return out
}

func (p Period) Valid() bool {
	if p.StartMonth < 1 || p.StartMonth > 12 || p.EndMonth < 1 || p.EndMonth > 12 {
		return false
	}
	start := p.StartYear*12 + p.StartMonth
	end := p.EndYear*12 + p.EndMonth
	return start <= end
}

func (p Period) Label() string {
	if p.StartYear == p.EndYear && p.StartMonth == p.EndMonth {
		return fmt.Sprintf("%d-%02d", p.StartYear, p.StartMonth)
	}
	return fmt.Sprintf("%d-%02d..%d-%02d", p.StartYear, p.StartMonth, p.EndYear, p.EndMonth)
}

// Request describes one aggregation. Percent-change requests carry exactly
// two periods; everything else carries one.
type Request struct {
	Periods   []Period
	Dimension Dimension
	Statistic Statistic
	Value     Value
	Value2    Value // second column for correlation requests
	Classes   []models.VehicleClass
	Scope     ZoneScope
	ZoneOn    ZoneField
	After     time.Time // drop trips picked up before this instant
}

// Validate checks the request shape. Percent-change periods must be of
// equal length and aligned on the same calendar months, e.g. Q1 vs Q1;
// comparing a full year to a single month is rejected.
func (r Request) Validate() error {
	switch r.Statistic {
	case Mean, Sum, Count, Correlation, Elasticity:
		if len(r.Periods) != 1 {
			return models.NewRequestError("%s requires exactly one period, got %d", r.Statistic, len(r.Periods))
		}
	case PctChange:
		if len(r.Periods) != 2 {
			return models.NewRequestError("percent-change requires exactly two periods, got %d", len(r.Periods))
		}
	default:
		return models.NewRequestError("unknown statistic %q", r.Statistic)
	}

	for _, p := range r.Periods {
		if !p.Valid() {
			return models.NewRequestError("invalid period %+v", p)
		}
	}

	if r.Statistic == PctChange {
		a, b := r.Periods[0].Months(), r.Periods[1].Months()
		if len(a) != len(b) {
			return models.NewRequestError("percent-change periods differ in length: %d vs %d months", len(a), len(b))
		}
		for i := range a {
			if a[i].Month != b[i].Month {
				return models.NewRequestError("percent-change periods are not calendar-aligned: %s vs %s",
					r.Periods[0].Label(), r.Periods[1].Label())
			}
		}
	}

	if r.Statistic == Correlation && (r.Value == "" || r.Value2 == "") {
		return models.NewRequestError("correlation requires two value columns")
	}

	switch r.Dimension {
	case ByZone, ByHour, ByWeekday, ByDay, ByMonth:
	default:
		return models.NewRequestError("unknown dimension %q", r.Dimension)
	}
	return nil
}
