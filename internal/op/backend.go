package op

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/queryir"
)

// Backend runs query snapshots. It is implemented by querysql.Backend and
// querydoc.Backend.
type Backend interface {
	Name() string
	Get(ctx context.Context, q *queryir.Select) ([]ir.Row, error)
	Count(ctx context.Context, q *queryir.Count) (int64, error)
	Insert(ctx context.Context, q *queryir.Insert) (queryir.Result, error)
	Update(ctx context.Context, q *queryir.Update) (queryir.Result, error)
	Delete(ctx context.Context, q *queryir.Delete) (queryir.Result, error)
	Truncate(ctx context.Context, q *queryir.Truncate) (queryir.Result, error)
	TableExists(ctx context.Context, table string) (bool, error)
	LastInsertID(r queryir.Result) (int64, error)
	AffectedRows(r queryir.Result) (int64, error)
}

// IDGenerator produces operation ids for log and error correlation.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
