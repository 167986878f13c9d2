// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package store reads locations, positions and their open assignments from PostgreSQL.
// Nothing in this module writes to the database.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store runs read-only queries; each query is its own implicit transaction.
type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

// Connect creates and verifies a pgxpool connection pool.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

const (
	locationByIDQuery = `SELECT name, address, city, state, zip FROM locations WHERE id = $1 AND is_active = TRUE`
	positionByIDQuery = `SELECT * FROM positions WHERE id = $1 AND is_active = TRUE`
)

// LocationByID returns the active location with the given id.
// The boolean is false when no active location matches.
func (s *Store) LocationByID(ctx context.Context, id int64) (Record, bool, error) {
	return s.recordByID(ctx, locationByIDQuery, id)
}

// PositionByID returns every column of the active position with the given id.
// The boolean is false when no active position matches.
func (s *Store) PositionByID(ctx context.Context, id int64) (Record, bool, error) {
	return s.recordByID(ctx, positionByIDQuery, id)
}

func (s *Store) recordByID(ctx context.Context, query string, id int64) (Record, bool, error) {
	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		return nil, false, fmt.Errorf("query record: %w", err)
	}

	record, err := pgx.CollectExactlyOneRow(rows, rowToRecord)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("collect record: %w", err)
	}

	return record, true, nil
}

func rowToRecord(row pgx.CollectableRow) (Record, error) {
	values, err := row.Values()
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	fields := row.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	return NewRecord(columns, values), nil
}
