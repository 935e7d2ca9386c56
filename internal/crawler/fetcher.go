package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lucsky/cuid"
	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/schollz/progressbar/v3"
)

const userAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:116.0) Gecko/20100101 Firefox/116.0"

// Fetcher downloads monthly TLC trip files and the zone lookup table into
// the local cache.
type Fetcher struct {
	cfg   *models.Config
	store *cache.Store
	http  *http.Client
	now   func() time.Time
}

func NewFetcher(cfg *models.Config, store *cache.Store) *Fetcher {
	return &Fetcher{
		cfg:   cfg,
		store: store,
		http:  &http.Client{Timeout: time.Duration(cfg.HTTPTimeout) * time.Second},
		now:   time.Now,
	}
}

// YearResult collects the outcome of a DownloadYear run. Failed months do
// not abort the year; they are reported so the caller can surface a
// "partial" warning.
type YearResult struct {
	JobID      string
	Year       int
	Downloaded []models.CacheEntry
	Skipped    []models.CacheEntry
	Failed     []*models.FetchError
}

// Fetch downloads one (year, month, class) file into the cache. An existing
// complete entry is returned as-is unless force refresh is configured.
func (f *Fetcher) Fetch(ctx context.Context, year, month int, class models.VehicleClass) (models.CacheEntry, error) {
	if !f.cfg.SupportsYear(year) {
		return models.CacheEntry{}, models.NewConfigurationError("year %d is not in the supported set %v", year, f.cfg.SupportedYears)
	}
	if month < 1 || month > 12 {
		return models.CacheEntry{}, models.NewConfigurationError("month %d out of range", month)
	}

	entry := f.store.Entry(year, month, class)
	if entry.Present && !f.cfg.ForceRefresh {
		log.Printf("already cached, skipping: %s", entry.Path)
		return entry, nil
	}

	if _, err := f.store.YearDir(year); err != nil {
		return models.CacheEntry{}, &models.FetchError{Year: year, Month: month, Class: class, Err: err}
	}

	url := fmt.Sprintf("%s/%s_tripdata_%d-%02d.parquet", f.cfg.TripDataBaseURL, class, year, month)

	// HEAD probe first so months the publisher has not released yet fail
	// cheaply without a partial body on disk.
	if err := f.head(ctx, url); err != nil {
		return models.CacheEntry{}, &models.FetchError{Year: year, Month: month, Class: class, Err: err}
	}

	if err := f.download(ctx, url, entry.Path); err != nil {
		os.Remove(entry.Path)
		return models.CacheEntry{}, &models.FetchError{Year: year, Month: month, Class: class, Err: err}
	}
	if err := f.store.MarkComplete(entry.Path, false, 0); err != nil {
		return models.CacheEntry{}, &models.FetchError{Year: year, Month: month, Class: class, Err: err}
	}

	return f.store.Entry(year, month, class), nil
}

// DownloadYear walks every month and class for a year, skipping months in
// the future relative to the wall clock, and keeps going past individual
// failures.
func (f *Fetcher) DownloadYear(ctx context.Context, year int, classes []models.VehicleClass) (*YearResult, error) {
	if !f.cfg.SupportsYear(year) {
		return nil, models.NewConfigurationError("year %d is not in the supported set %v", year, f.cfg.SupportedYears)
	}

	res := &YearResult{JobID: cuid.New(), Year: year}
	now := f.now()

	for month := 1; month <= 12; month++ {
		if year > now.Year() || (year == now.Year() && month > int(now.Month())) {
			continue
		}
		for _, class := range classes {
			if f.store.Has(year, month, class) && !f.cfg.ForceRefresh {
				res.Skipped = append(res.Skipped, f.store.Entry(year, month, class))
				continue
			}
			entry, err := f.Fetch(ctx, year, month, class)
			if err != nil {
				var fe *models.FetchError
				if errors.As(err, &fe) {
					log.Printf("warning: job %s: %v", res.JobID, fe)
					res.Failed = append(res.Failed, fe)
					continue
				}
				return res, err
			}
			res.Downloaded = append(res.Downloaded, entry)
		}
	}

	log.Printf("job %s: year %d finished, %d downloaded, %d skipped, %d failed",
		res.JobID, year, len(res.Downloaded), len(res.Skipped), len(res.Failed))
	return res, nil
}

// FetchZoneLookup downloads the taxi zone lookup CSV unless it is already
// on disk.
func (f *Fetcher) FetchZoneLookup(ctx context.Context) (string, error) {
	path := f.cfg.ZoneLookupFile
	if _, err := os.Stat(path); err == nil && !f.cfg.ForceRefresh {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := f.download(ctx, f.cfg.ZoneLookupURL, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("fetch zone lookup: %w", err)
	}
	return path, nil
}

func (f *Fetcher) head(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("file not available (HTTP %d)", resp.StatusCode)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed (HTTP %d)", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	log.Printf("downloading: %s -> %s", url, dest)
	bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(dest))
	if _, err := io.Copy(io.MultiWriter(out, bar), resp.Body); err != nil {
		return err
	}
	return out.Close()
}
