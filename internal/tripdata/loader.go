package tripdata

import (
	"fmt"

	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// Loader reads monthly trip files in batches, applying the standard
// data-quality filters before handing rows to the caller.
type Loader struct {
	// BatchCount controls how many batches a file is split into.
	BatchCount int
}

func NewLoader() *Loader {
	return &Loader{BatchCount: 2}
}

// ReadBatches streams filtered trip records from a monthly file. fn is
// invoked once per non-empty batch; a non-nil return stops the read.
func (l *Loader) ReadBatches(path string, class models.VehicleClass, fn func([]models.TripRecord) error) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	switch class {
	case models.Yellow:
		pr, err := reader.NewParquetReader(fr, new(rawYellowTrip), 4)
		if err != nil {
			return fmt.Errorf("parquet reader %s: %w", path, err)
		}
		defer pr.ReadStop()
		return readAll(pr, l.batchSize(pr.GetNumRows()), fn, func(n int) ([]models.TripRecord, error) {
			rows := make([]rawYellowTrip, n)
			if err := pr.Read(&rows); err != nil {
				return nil, err
			}
			out := make([]models.TripRecord, 0, len(rows))
			for _, r := range rows {
				out = append(out, r.toRecord())
			}
			return out, nil
		})
	case models.Green:
		pr, err := reader.NewParquetReader(fr, new(rawGreenTrip), 4)
		if err != nil {
			return fmt.Errorf("parquet reader %s: %w", path, err)
		}
		defer pr.ReadStop()
		return readAll(pr, l.batchSize(pr.GetNumRows()), fn, func(n int) ([]models.TripRecord, error) {
			rows := make([]rawGreenTrip, n)
			if err := pr.Read(&rows); err != nil {
				return nil, err
			}
			out := make([]models.TripRecord, 0, len(rows))
			for _, r := range rows {
				out = append(out, r.toRecord())
			}
			return out, nil
		})
	}
	return models.NewConfigurationError("unknown vehicle class %q", class)
}

// ReadMonth loads an entire cache entry into memory, filtered.
func (l *Loader) ReadMonth(entry models.CacheEntry) ([]models.TripRecord, error) {
	var all []models.TripRecord
	err := l.ReadBatches(entry.Path, entry.Class, func(batch []models.TripRecord) error {
		all = append(all, batch...)
		return nil
	})
	return all, err
}

func (l *Loader) batchSize(total int64) int {
	n := l.BatchCount
	if n < 1 {
		n = 1
	}
	size := int(total) / n
	if size < 1 {
		size = 1
	}
	return size
}

type numRower interface {
	GetNumRows() int64
}

func readAll(pr numRower, batchSize int, fn func([]models.TripRecord) error, read func(int) ([]models.TripRecord, error)) error {
	remaining := pr.GetNumRows()
	for remaining > 0 {
		n := batchSize
		if int64(n) > remaining {
			n = int(remaining)
		}
		remaining -= int64(n)

		batch, err := read(n)
		if err != nil {
			return err
		}
		batch = Filter(batch)
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

const (
	// Trips shorter than this with a fare above teleporterFare are treated
	// as meter glitches.
	teleporterSeconds = 60
	teleporterFare    = 20
	// Anything faster than this is not a street-legal taxi.
	maxSpeedMPH = 65
)

// Filter drops records that fail the data-quality checks: teleporters
// (implausibly short trips with a large fare), impossible speeds, and
// stationary rides with zero distance or fare.
func Filter(records []models.TripRecord) []models.TripRecord {
	out := records[:0]
	for _, r := range records {
		dur := r.DropoffTime.Sub(r.PickupTime).Seconds()
		if dur <= 0 {
			continue
		}
		if dur < teleporterSeconds && r.Fare > teleporterFare {
			continue
		}
		if r.SpeedMPH() > maxSpeedMPH {
			continue
		}
		if r.TripDistance <= 0 || r.Fare <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}
