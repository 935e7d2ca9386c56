package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nycdatalab/tlcaudit/internal/aggregate"
	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/crawler"
	"github.com/nycdatalab/tlcaudit/internal/impute"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/nycdatalab/tlcaudit/internal/report"
	"github.com/nycdatalab/tlcaudit/internal/tripdata"
	"github.com/nycdatalab/tlcaudit/internal/weather"
	"github.com/nycdatalab/tlcaudit/internal/zones"
)

const lookupCSV = `LocationID,Borough,Zone,service_zone
161,Manhattan,Midtown Center,Yellow Zone
236,Manhattan,Upper East Side North,Yellow Zone
7,Queens,Astoria,Boro Zone
`

type stubWeather struct{}

func (stubWeather) DaysForYear(ctx context.Context, year int) ([]weather.Day, error) {
	return nil, context.DeadlineExceeded
}

func testServer(t *testing.T) (*Server, *cache.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &models.Config{
		CacheDir:       dir,
		SupportedYears: []int{2024, 2025},
		VehicleClasses: []string{"yellow", "green"},
		TollStartDate:  time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Impute:         models.ImputeConfig{GrowthFactor: 1, PriorYearWt: 0.7, EarlierYearWt: 0.3, Seed: 42},
		Elasticity:     models.ElasticityConfig{Threshold: 0.2},
		Report:         models.ReportConfig{OutputFile: filepath.Join(dir, "audit.pdf"), TopVendors: 5},
		Server:         models.ServerConfig{Addr: ":0"},
		HTTPTimeout:    5,
	}

	lookupPath := filepath.Join(dir, "taxi_zone_lookup.csv")
	if err := os.WriteFile(lookupPath, []byte(lookupCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	lookup, err := zones.Load(lookupPath)
	if err != nil {
		t.Fatal(err)
	}

	store := cache.New(dir)
	loader := tripdata.NewLoader()
	engine := aggregate.NewEngine(cfg, store, loader, lookup, stubWeather{})
	srv := New(cfg, store, crawler.NewFetcher(cfg, store), impute.NewImputer(cfg, store, loader),
		engine, report.NewBuilder(cfg, engine), nil)
	return srv, store
}

func seedMonth(t *testing.T, store *cache.Store, year, month int, class models.VehicleClass, trips []models.TripRecord) {
	t.Helper()
	if _, err := store.YearDir(year); err != nil {
		t.Fatal(err)
	}
	path := store.Path(year, month, class)
	rows, err := tripdata.WriteMonth(path, class, trips)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkComplete(path, false, rows); err != nil {
		t.Fatal(err)
	}
}

func entering(year, month, n int) []models.TripRecord {
	out := make([]models.TripRecord, n)
	pickup := time.Date(year, time.Month(month), 10, 9, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.TripRecord{
			VendorID:     1,
			PickupTime:   pickup,
			DropoffTime:  pickup.Add(20 * time.Minute),
			PickupLoc:    7,
			DropoffLoc:   161,
			TripDistance: 3,
			Fare:         15,
			Class:        models.Yellow,
		}
	}
	return out
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestYearsEndpoint(t *testing.T) {
	srv, store := testServer(t)
	seedMonth(t, store, 2025, 1, models.Yellow, entering(2025, 1, 3))

	w := do(t, srv, http.MethodGet, "/api/years")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var body struct {
		Years []struct {
			Year    int                 `json:"year"`
			Entries []models.CacheEntry `json:"entries"`
		} `json:"years"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Years) != 2 {
		t.Fatalf("years = %+v", body.Years)
	}
	if body.Years[1].Year != 2025 || len(body.Years[1].Entries) != 1 {
		t.Errorf("2025 state = %+v", body.Years[1])
	}
}

func TestInvalidYearParam(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, http.MethodPost, "/api/download/abc")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMissingDataMapsTo404(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, http.MethodGet, "/api/border-effect?from=2024&to=2025")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body %s", w.Code, w.Body)
	}
}

func TestImputeValidationMapsTo400(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodPost, "/api/impute/2025/13")
	if w.Code != http.StatusBadRequest {
		t.Errorf("month 13 status = %d, want 400", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/api/impute/1999/12")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported year status = %d, want 400", w.Code)
	}
}

func TestImputeEndpoint(t *testing.T) {
	srv, store := testServer(t)
	seedMonth(t, store, 2024, 12, models.Yellow, entering(2024, 12, 20))
	seedMonth(t, store, 2024, 12, models.Green, entering(2024, 12, 10))

	w := do(t, srv, http.MethodPost, "/api/impute/2025/12")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if !store.Entry(2025, 12, models.Yellow).Synthetic {
		t.Error("imputed yellow entry should be synthetic")
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	srv, store := testServer(t)
	seedMonth(t, store, 2025, 1, models.Yellow, entering(2025, 1, 3))

	w := do(t, srv, http.MethodPost, "/api/cache/2025/invalidate")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if store.Has(2025, 1, models.Yellow) {
		t.Error("entry should be gone after invalidation")
	}
}

func TestYellowVsGreenEndpoint(t *testing.T) {
	srv, store := testServer(t)
	for _, year := range []int{2024, 2025} {
		for m := 1; m <= 3; m++ {
			n := 10
			if year == 2025 {
				n = 5
			}
			trips := entering(year, m, 0)
			if m == 1 {
				trips = entering(year, m, n)
			}
			seedMonth(t, store, year, m, models.Yellow, trips)
			seedMonth(t, store, year, m, models.Green, nil)
		}
	}

	w := do(t, srv, http.MethodGet, "/api/yellow-vs-green?from=2024&to=2025")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var body struct {
		Rows []aggregate.ClassComparison `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Rows) != 3 {
		t.Fatalf("rows = %+v", body.Rows)
	}
	if body.Rows[0].CountA != 10 || body.Rows[0].CountB != 5 {
		t.Errorf("yellow row = %+v", body.Rows[0])
	}
}
