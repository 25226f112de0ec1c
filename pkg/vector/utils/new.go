// Package vectorutils builds a vector.Store from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielpid/dynamic-rag/pkg/vector"
	"github.com/danielpid/dynamic-rag/pkg/vector/inmemory"
	"github.com/danielpid/dynamic-rag/pkg/vector/pgvector"
	"github.com/danielpid/dynamic-rag/pkg/vector/qdrant"
	"github.com/danielpid/dynamic-rag/pkg/vector/sqlitevec"
)

type NewVectorStoreOpts struct {
	// ProviderType is one of "pgvector", "qdrant", "sqlite" or "memory".
	ProviderType string

	// DSN is the PostgreSQL connection string for pgvector.
	DSN string

	// TargetURL is the Qdrant gRPC address or the SQLite database path.
	TargetURL string

	// Table is the pgvector table or Qdrant collection.
	Table string

	// MaxConns caps the pgvector connection pool.
	MaxConns int32

	// Credentials resolves the pgvector user and password per connection.
	Credentials func(ctx context.Context) (user, password string, err error)

	Logger *slog.Logger
}

func NewVectorStore(ctx context.Context, o *NewVectorStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "pgvector", "postgres":
		return pgvector.NewStore(ctx, pgvector.Config{
			DSN:         o.DSN,
			Table:       o.Table,
			MaxConns:    o.MaxConns,
			Credentials: o.Credentials,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			Addr:       o.TargetURL,
			Collection: o.Table,
		}, o.Logger)
	case "sqlite", "sqlitevec":
		return sqlitevec.NewStore(sqlitevec.Config{
			DBPath: o.TargetURL,
		}, o.Logger)
	case "memory", "inmemory":
		return inmemory.NewStore(o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
