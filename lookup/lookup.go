// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package lookup answers the assistant's location and position lookups from the store.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/store"
)

// ErrUnavailable is returned when the store cannot be queried.
// It is never used for an id without an active row; that is an absent Result.
var ErrUnavailable = errors.New("lookup unavailable")

type Kind string

const (
	KindLocation Kind = "location"
	KindPosition Kind = "position"
)

// Source is the read side of the store used for lookups.
type Source interface {
	LocationByID(ctx context.Context, id int64) (store.Record, bool, error)
	PositionByID(ctx context.Context, id int64) (store.Record, bool, error)
}

// Result is either a found record or the absence of an active row for the id.
type Result struct {
	Kind   Kind
	ID     string
	Record store.Record
	Found  bool
}

// Absent reports a lookup that matched no active row.
func Absent(kind Kind, id string) Result {
	return Result{Kind: kind, ID: id}
}

// Text renders the result for the model.
func (r Result) Text() (string, error) {
	if !r.Found {
		return fmt.Sprintf("No active %s was found with id %s.", r.Kind, r.ID), nil
	}

	bytes, err := json.Marshal(r.Record)
	if err != nil {
		return "", fmt.Errorf("marshal %s %s: %w", r.Kind, r.ID, err)
	}

	return fmt.Sprintf("Here is some information about the %s with id %s:\n\n%s", r.Kind, r.ID, bytes), nil
}

type Service struct {
	source Source
	logger zerolog.Logger
}

func New(source Source, opts ...Option) *Service {
	service := &Service{source: source, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Location looks up an active location.
func (s *Service) Location(ctx context.Context, id string) (Result, error) {
	return s.lookup(ctx, KindLocation, id, s.source.LocationByID)
}

// Position looks up an active position with all of its columns.
func (s *Service) Position(ctx context.Context, id string) (Result, error) {
	return s.lookup(ctx, KindPosition, id, s.source.PositionByID)
}

func (s *Service) lookup(
	ctx context.Context,
	kind Kind,
	id string,
	byID func(context.Context, int64) (store.Record, bool, error),
) (Result, error) {
	id = strings.TrimSpace(id)
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		// Not a key of any row.
		s.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("lookup id is not a positive integer")

		return Absent(kind, id), nil
	}

	record, found, err := byID(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("lookup failed")

		return Result{}, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, kind, id, err)
	}
	if !found {
		return Absent(kind, id), nil
	}

	return Result{Kind: kind, ID: id, Record: record, Found: true}, nil
}
