package recommend

import (
	"context"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/search/filter"
)

// Store is the local record store boundary. Candidates returns records
// matching the expression; limit <= 0 means unbounded.
type Store interface {
	Candidates(ctx context.Context, expr filter.Expression, limit int) ([]record.Record, error)
}
