package collector

import (
	"context"

	"copytrader/internal/models"
)

// Collector discovers new source trades from an external feed, e.g. parsed
// disclosure filings. Implementations are responsible for de-duplication;
// anything returned here is handed to the engine as-is.
type Collector interface {
	Collect(ctx context.Context) ([]models.SourceTrade, error)
}

// Stats summarizes one collection pass for the execution record.
type Stats struct {
	Collected int
	Invalid   int
	Alerted   int
}

// AsMap flattens Stats into the opaque collection_stats map persisted on
// the execution record.
func (s Stats) AsMap() map[string]int {
	return map[string]int{
		"collected": s.Collected,
		"invalid":   s.Invalid,
		"alerted":   s.Alerted,
	}
}
