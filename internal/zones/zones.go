package zones

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nycdatalab/tlcaudit/internal/models"
)

// Lookup holds the TLC taxi zone table. Loaded once, read-only thereafter.
type Lookup struct {
	byID map[int64]models.Zone
}

// Zone name fragments north of the congestion boundary (~60th St). Zones
// matching these inside Manhattan are excluded from the congestion set.
var northOfBoundary = []string{
	"Upper East", "Upper West", "Harlem", "Washington Heights", "Inwood",
}

// Zones treated as "just outside" the tolled area for the border effect.
var borderPatterns = []string{
	"Upper East Side", "Upper West Side", "Manhattan Valley",
	"Yorkville", "Lenox Hill", "Lincoln Square", "Central Park",
}

// Load reads a taxi_zone_lookup.csv with columns
// LocationID,Borough,Zone,service_zone.
func Load(path string) (*Lookup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zone lookup: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Read() // header

	lk := &Lookup{byID: make(map[int64]models.Zone)}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read zone lookup: %w", err)
		}
		if len(fields) < 3 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			continue
		}
		z := models.Zone{
			LocationID: id,
			Borough:    strings.TrimSpace(fields[1]),
			Name:       strings.TrimSpace(fields[2]),
		}
		if len(fields) > 3 {
			z.ServiceZone = strings.TrimSpace(fields[3])
		}
		lk.byID[id] = z
	}
	if len(lk.byID) == 0 {
		return nil, fmt.Errorf("zone lookup %s contained no zones", path)
	}
	return lk, nil
}

// Zone returns the zone for an id, if known.
func (l *Lookup) Zone(id int64) (models.Zone, bool) {
	z, ok := l.byID[id]
	return z, ok
}

// Name returns the zone name for an id, or the id itself when unknown.
func (l *Lookup) Name(id int64) string {
	if z, ok := l.byID[id]; ok {
		return z.Name
	}
	return strconv.FormatInt(id, 10)
}

// CongestionZoneIDs returns the Manhattan zones south of the boundary, the
// tolled area.
func (l *Lookup) CongestionZoneIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for id, z := range l.byID {
		if z.Borough != "Manhattan" {
			continue
		}
		if matchesAny(z.Name, northOfBoundary) {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// BorderZoneIDs returns Manhattan zones just north of the boundary,
// excluding anything already inside the congestion set.
func (l *Lookup) BorderZoneIDs() map[int64]struct{} {
	inner := l.CongestionZoneIDs()
	ids := make(map[int64]struct{})
	for id, z := range l.byID {
		if z.Borough != "Manhattan" {
			continue
		}
		if !matchesAny(z.Name, borderPatterns) {
			continue
		}
		if _, ok := inner[id]; ok {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
