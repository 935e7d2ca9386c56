package weather

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// Day is one day of precipitation at the reference station.
type Day struct {
	Date     time.Time
	PrecipMM float64
}

// Client fetches daily precipitation from the Open-Meteo archive API and
// caches it as a CSV with columns date,precip_mm.
type Client struct {
	cfg  models.WeatherConfig
	http *http.Client
}

func NewClient(cfg models.WeatherConfig, timeout time.Duration) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// DaysForYear returns one entry per day of the year, from the CSV cache if
// present, otherwise from the archive API (and writes the cache).
func (c *Client) DaysForYear(ctx context.Context, year int) ([]Day, error) {
	if days, err := LoadCSV(c.cfg.CacheFile); err == nil && len(days) > 0 && days[0].Date.Year() == year {
		return days, nil
	}

	days, err := c.fetchYear(ctx, year)
	if err != nil {
		return nil, err
	}
	if err := SaveCSV(c.cfg.CacheFile, days); err != nil {
		return nil, fmt.Errorf("cache weather data: %w", err)
	}
	return days, nil
}

type archiveResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (c *Client) fetchYear(ctx context.Context, year int) ([]Day, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.cfg.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.cfg.Longitude, 'f', 4, 64))
	q.Set("start_date", fmt.Sprintf("%d-01-01", year))
	q.Set("end_date", fmt.Sprintf("%d-12-31", year))
	q.Set("daily", "precipitation_sum")
	q.Set("timezone", c.cfg.Timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ArchiveURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather archive returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed archiveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected weather API response: %w", err)
	}
	if len(parsed.Daily.Time) == 0 {
		return nil, fmt.Errorf("weather API response had no daily series")
	}

	days := make([]Day, 0, len(parsed.Daily.Time))
	for i, ts := range parsed.Daily.Time {
		date, err := time.Parse("2006-01-02", ts)
		if err != nil {
			return nil, fmt.Errorf("weather date %q: %w", ts, err)
		}
		var mm float64
		if i < len(parsed.Daily.PrecipitationSum) {
			mm = parsed.Daily.PrecipitationSum[i]
		}
		days = append(days, Day{Date: date, PrecipMM: mm})
	}
	return days, nil
}

// LoadCSV reads a cached weather file with columns date,precip_mm.
func LoadCSV(path string) ([]Day, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Read() // header

	var days []Day
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) < 2 {
			continue
		}
		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			return nil, fmt.Errorf("weather cache date %q: %w", fields[0], err)
		}
		mm, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("weather cache precip %q: %w", fields[1], err)
		}
		days = append(days, Day{Date: date, PrecipMM: mm})
	}
	return days, nil
}

// SaveCSV writes the weather cache.
func SaveCSV(path string, days []Day) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"date", "precip_mm"}); err != nil {
		return err
	}
	for _, d := range days {
		row := []string{d.Date.Format("2006-01-02"), strconv.FormatFloat(d.PrecipMM, 'f', 2, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
