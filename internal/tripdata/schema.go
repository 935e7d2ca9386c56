package tripdata

import (
	"time"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// rawYellowTrip mirrors the columns of interest in a yellow tripdata file.
type rawYellowTrip struct {
	VendorID            int64   `parquet:"name=VendorID, type=INT64"`
	PickupDatetime      int64   `parquet:"name=tpep_pickup_datetime, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	DropoffDatetime     int64   `parquet:"name=tpep_dropoff_datetime, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	PULocationID        int64   `parquet:"name=PULocationID, type=INT64"`
	DOLocationID        int64   `parquet:"name=DOLocationID, type=INT64"`
	TripDistance        float64 `parquet:"name=trip_distance, type=DOUBLE"`
	FareAmount          float64 `parquet:"name=fare_amount, type=DOUBLE"`
	TotalAmount         float64 `parquet:"name=total_amount, type=DOUBLE"`
	CongestionSurcharge float64 `parquet:"name=congestion_surcharge, type=DOUBLE"`
	TipAmount           float64 `parquet:"name=tip_amount, type=DOUBLE"`
}

// rawGreenTrip is the same subset under the green fleet's lpep_* names.
type rawGreenTrip struct {
	VendorID            int64   `parquet:"name=VendorID, type=INT64"`
	PickupDatetime      int64   `parquet:"name=lpep_pickup_datetime, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	DropoffDatetime     int64   `parquet:"name=lpep_dropoff_datetime, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	PULocationID        int64   `parquet:"name=PULocationID, type=INT64"`
	DOLocationID        int64   `parquet:"name=DOLocationID, type=INT64"`
	TripDistance        float64 `parquet:"name=trip_distance, type=DOUBLE"`
	FareAmount          float64 `parquet:"name=fare_amount, type=DOUBLE"`
	TotalAmount         float64 `parquet:"name=total_amount, type=DOUBLE"`
	CongestionSurcharge float64 `parquet:"name=congestion_surcharge, type=DOUBLE"`
	TipAmount           float64 `parquet:"name=tip_amount, type=DOUBLE"`
}

func (r rawYellowTrip) toRecord() models.TripRecord {
	return models.TripRecord{
		VendorID:            r.VendorID,
		PickupTime:          time.UnixMicro(r.PickupDatetime).UTC(),
		DropoffTime:         time.UnixMicro(r.DropoffDatetime).UTC(),
		PickupLoc:           r.PULocationID,
		DropoffLoc:          r.DOLocationID,
		TripDistance:        r.TripDistance,
		Fare:                r.FareAmount,
		TotalAmount:         r.TotalAmount,
		CongestionSurcharge: r.CongestionSurcharge,
		TipAmount:           r.TipAmount,
		Class:               models.Yellow,
	}
}

func (r rawGreenTrip) toRecord() models.TripRecord {
	return models.TripRecord{
		VendorID:            r.VendorID,
		PickupTime:          time.UnixMicro(r.PickupDatetime).UTC(),
		DropoffTime:         time.UnixMicro(r.DropoffDatetime).UTC(),
		PickupLoc:           r.PULocationID,
		DropoffLoc:          r.DOLocationID,
		TripDistance:        r.TripDistance,
		Fare:                r.FareAmount,
		TotalAmount:         r.TotalAmount,
		CongestionSurcharge: r.CongestionSurcharge,
		TipAmount:           r.TipAmount,
		Class:               models.Green,
	}
}

func fromRecord(rec models.TripRecord) (rawYellowTrip, rawGreenTrip) {
	y := rawYellowTrip{
		VendorID:            rec.VendorID,
		PickupDatetime:      rec.PickupTime.UnixMicro(),
		DropoffDatetime:     rec.DropoffTime.UnixMicro(),
		PULocationID:        rec.PickupLoc,
		DOLocationID:        rec.DropoffLoc,
		TripDistance:        rec.TripDistance,
		FareAmount:          rec.Fare,
		TotalAmount:         rec.TotalAmount,
		CongestionSurcharge: rec.CongestionSurcharge,
		TipAmount:           rec.TipAmount,
	}
	g := rawGreenTrip(y)
	return y, g
}
