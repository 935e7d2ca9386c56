package tripdata

import (
	"fmt"

	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// WriteMonth writes trip records to a monthly parquet file in the class's
// native column naming, so imputed months read back exactly like downloaded
// ones. Returns the row count written.
func WriteMonth(path string, class models.VehicleClass, records []models.TripRecord) (int64, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	var pw *writer.ParquetWriter
	switch class {
	case models.Yellow:
		pw, err = writer.NewParquetWriter(fw, new(rawYellowTrip), 4)
	case models.Green:
		pw, err = writer.NewParquetWriter(fw, new(rawGreenTrip), 4)
	default:
		return 0, models.NewConfigurationError("unknown vehicle class %q", class)
	}
	if err != nil {
		return 0, fmt.Errorf("parquet writer %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		y, g := fromRecord(rec)
		if class == models.Yellow {
			err = pw.Write(y)
		} else {
			err = pw.Write(g)
		}
		if err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("finish %s: %w", path, err)
	}
	return int64(len(records)), nil
}
