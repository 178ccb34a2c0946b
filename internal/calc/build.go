package calc

import (
	"fmt"

	"techcalc/internal/model"
	"techcalc/internal/store/sqlite"
)

// BuildEngines returns the engines for families, in the order given,
// reading bars from feed and persisting to db.
func BuildEngines(families []string, feed model.PriceFeed, db *sqlite.DB) ([]Engine, error) {
	engines := make([]Engine, 0, len(families))
	for _, f := range families {
		switch f {
		case model.FamilyCCI:
			engines = append(engines, NewCCIEngine(feed, sqlite.NewCCITable(db)))
		case model.FamilyMTM:
			engines = append(engines, NewMTMEngine(feed, sqlite.NewMTMTable(db)))
		case model.FamilyRSI:
			engines = append(engines, NewRSIEngine(feed, sqlite.NewRSITable(db)))
		default:
			return nil, fmt.Errorf("unknown indicator family %q", f)
		}
	}
	return engines, nil
}
