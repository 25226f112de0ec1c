// Package sqlitevec provides a SQLite-backed vector store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

// Store implements vector.Store using SQLite with sqlite-vec.
// Search is an exact KNN scan, so the HNSW parameters are accepted and ignored.
type Store struct {
	db     *sql.DB
	index  vector.Index
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewStore opens the database and verifies sqlite-vec is loaded.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fault.Newf(fault.Configuration, "sqlitevec.open", "database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	logger.Info("sqlite-vec vector store opened",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// Initialize creates the record and vec0 tables. The dimension is persisted
// in vec_meta and checked on every subsequent Initialize.
func (s *Store) Initialize(ctx context.Context, params vector.IndexParams) error {
	const op = "sqlitevec.initialize"

	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vec_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("%s: creating meta table: %w", op, err)
	}

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM vec_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case err == nil:
		dims, convErr := strconv.ParseUint(stored, 10, 32)
		if convErr != nil {
			return fmt.Errorf("%s: parsing stored dimensions %q: %w", op, stored, convErr)
		}
		if uint(dims) != params.Dimensions {
			return vector.DimensionMismatch(op, uint(dims), int(params.Dimensions))
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO vec_meta(key, value) VALUES ('dimensions', ?)`,
			strconv.FormatUint(uint64(params.Dimensions), 10),
		); err != nil {
			return fmt.Errorf("%s: storing dimensions: %w", op, err)
		}
	default:
		return fmt.Errorf("%s: reading dimensions: %w", op, err)
	}

	// vec0 virtual tables only hold integer rowids and vectors, so text and
	// metadata live in a companion table keyed by the same rowid.
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vec_records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id TEXT NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`); err != nil {
		return fmt.Errorf("%s: creating records table: %w", op, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		params.Dimensions,
	)
	if _, err := s.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("%s: creating vec0 table: %w", op, err)
	}

	s.index.Set(params)

	s.logger.Debug("sqlite-vec index ready; hnsw parameters are ignored by exact search",
		"dimensions", params.Dimensions,
		"m", params.M,
		"ef_construction", params.EfConstruction,
	)
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Insert appends records in one transaction.
func (s *Store) Insert(ctx context.Context, records []vector.Record) error {
	const op = "sqlitevec.insert"

	index, err := s.index.Params()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(op, index.Dimensions, records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", r.NodeID, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_records(node_id, text, metadata) VALUES (?, ?, ?)`,
			r.NodeID, r.Text, string(metaJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", r.NodeID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for %s: %w", r.NodeID, err)
		}

		// Insert embedding into vec0 table with matching rowid
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(r.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", r.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("inserted records into sqlite-vec",
		"count", len(records),
	)
	return nil
}

// Search finds the TopK most similar records by cosine distance.
func (s *Store) Search(ctx context.Context, embedding []float32, params vector.SearchParams) ([]vector.Result, error) {
	const op = "sqlitevec.search"

	index, err := s.index.Params()
	if err != nil {
		return nil, err
	}
	if len(embedding) != int(index.Dimensions) {
		return nil, vector.DimensionMismatch(op, index.Dimensions, len(embedding))
	}
	params = params.WithDefaults(index)

	// Use KNN query via vec0 MATCH, then JOIN back to get the record.
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			r.rowid,
			r.node_id,
			r.text,
			r.metadata,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), params.TopK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.Result{}
	for rows.Next() {
		var (
			rowID    int64
			r        vector.Result
			metaJSON string
			distance float64
		)
		if err := rows.Scan(&rowID, &r.NodeID, &r.Text, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for row %d: %w", rowID, err)
		}
		r.ID = strconv.FormatInt(rowID, 10)
		// cosine distance is 1 - similarity
		r.Score = float32(1 - distance)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	s.logger.Debug("queried sqlite-vec",
		"results", len(results),
	)
	return results, nil
}

// Count returns the number of stored records. It does not need Initialize,
// and reports zero for a database that has never been initialized.
func (s *Store) Count(ctx context.Context) (int, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'vec_records'`,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking records table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM vec_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ vector.Store = (*Store)(nil)
