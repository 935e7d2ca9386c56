package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// Store is a directory cache keyed by (year, month, vehicle class).
// Layout: <dir>/tlc_<year>/<class>_tripdata_<year>-<month>.parquet with a
// sidecar marker written only after the file is complete, so a partial
// download is never mistaken for a finished one.
type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

const markerSuffix = ".ok"

type marker struct {
	CompletedAt time.Time `json:"completed_at"`
	Synthetic   bool      `json:"synthetic"`
	Rows        int64     `json:"rows,omitempty"`
}

// YearDir returns (and creates) the per-year subfolder.
func (s *Store) YearDir(year int) (string, error) {
	dir := filepath.Join(s.Dir, fmt.Sprintf("tlc_%d", year))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the data file path for a key without touching the filesystem.
func (s *Store) Path(year, month int, class models.VehicleClass) string {
	name := fmt.Sprintf("%s_tripdata_%d-%02d.parquet", class, year, month)
	return filepath.Join(s.Dir, fmt.Sprintf("tlc_%d", year), name)
}

// Has reports whether a complete entry exists: both the data file and its
// completion marker must be present.
func (s *Store) Has(year, month int, class models.VehicleClass) bool {
	path := s.Path(year, month, class)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	_, err := os.Stat(path + markerSuffix)
	return err == nil
}

// Entry returns the cache entry for a key, with Present and Synthetic
// reflecting the marker state.
func (s *Store) Entry(year, month int, class models.VehicleClass) models.CacheEntry {
	e := models.CacheEntry{
		Year:  year,
		Month: month,
		Class: class,
		Path:  s.Path(year, month, class),
	}
	if !s.Has(year, month, class) {
		return e
	}
	e.Present = true
	if m, err := s.readMarker(e.Path); err == nil {
		e.Synthetic = m.Synthetic
	}
	return e
}

// List enumerates all present entries for a year, month-ascending, vehicle
// classes in fixed (yellow, green) order within each month.
func (s *Store) List(year int) []models.CacheEntry {
	var entries []models.CacheEntry
	for month := 1; month <= 12; month++ {
		for _, class := range models.AllClasses {
			if e := s.Entry(year, month, class); e.Present {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// Invalidate deletes all cached files for a year, forcing re-fetch on the
// next aggregation.
func (s *Store) Invalidate(year int) error {
	return os.RemoveAll(filepath.Join(s.Dir, fmt.Sprintf("tlc_%d", year)))
}

// MarkComplete writes the sidecar marker after a download or imputation has
// finished writing the data file.
func (s *Store) MarkComplete(path string, synthetic bool, rows int64) error {
	m := marker{CompletedAt: time.Now().UTC(), Synthetic: synthetic, Rows: rows}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path+markerSuffix, data, 0o644)
}

// Remove deletes a single entry and its marker.
func (s *Store) Remove(year, month int, class models.VehicleClass) error {
	path := s.Path(year, month, class)
	if err := os.Remove(path + markerSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) readMarker(path string) (marker, error) {
	var m marker
	data, err := os.ReadFile(path + markerSuffix)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}
