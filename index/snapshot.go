// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package index rebuilds the vector store the file search assistant answers from.
//
// A rebuild reads active locations and open positions from the store,
// writes them as JSON and text files, and replaces the files of the vector store with them.
package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ktong/lpassistant/store"
)

// Source is the read side of the store used for rebuilds. It is implemented by *store.Store.
type Source interface {
	ActiveLocations(ctx context.Context) ([]store.Location, error)
	OpenPositions(ctx context.Context) ([]store.PositionRef, error)
	OpenPositionsAt(ctx context.Context, locationID int64) ([]store.Opening, error)
}

type (
	// LocationRef is the short form of a location in the list of available locations.
	LocationRef struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		City  string `json:"city"`
		State string `json:"state"`
	}

	// LocationDetails is a location with its open positions.
	LocationDetails struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Address   string          `json:"address"`
		City      string          `json:"city"`
		State     string          `json:"state"`
		Zip       string          `json:"zip"`
		Phone     string          `json:"phone"`
		Positions []store.Opening `json:"positions_details"`
	}

	CityEntry struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
	}
	StateEntry struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
		City    string `json:"city"`
		Zip     string `json:"zip"`
	}

	// Group is the locations sharing one exact key. It marshals to {"<key>": [...]}.
	Group[T any] struct {
		Key       string
		Locations []T
	}

	// Snapshot is everything written to the index, built from one pass over the store.
	Snapshot struct {
		Positions []store.PositionRef
		Locations []LocationRef
		Details   []LocationDetails
		ByCity    []Group[CityEntry]
		ByState   []Group[StateEntry]
	}
)

func (g Group[T]) MarshalJSON() ([]byte, error) {
	locations := g.Locations
	if locations == nil {
		locations = []T{}
	}

	return json.Marshal(map[string][]T{g.Key: locations}) //nolint:wrapcheck
}

// Build reads the store and assembles a Snapshot.
// Any store error aborts the build; a partial snapshot is never returned.
func Build(ctx context.Context, source Source) (Snapshot, error) {
	locations, err := source.ActiveLocations(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build snapshot: %w", err)
	}
	positions, err := source.OpenPositions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build snapshot: %w", err)
	}

	if positions == nil {
		positions = []store.PositionRef{}
	}

	snapshot := Snapshot{
		Positions: positions,
		Locations: make([]LocationRef, 0, len(locations)),
		Details:   make([]LocationDetails, 0, len(locations)),
	}
	for _, location := range locations {
		openings, err := source.OpenPositionsAt(ctx, location.ID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("build snapshot: %w", err)
		}

		snapshot.Locations = append(snapshot.Locations, LocationRef{
			ID: location.ID, Name: location.Name, City: location.City, State: location.State,
		})
		snapshot.Details = append(snapshot.Details, LocationDetails{
			ID:        location.ID,
			Name:      location.Name,
			Address:   location.Address,
			City:      location.City,
			State:     location.State,
			Zip:       location.Zip,
			Phone:     location.Phone,
			Positions: openOnly(openings),
		})
	}

	snapshot.ByCity = groupBy(locations,
		func(location store.Location) string { return location.City },
		func(location store.Location) CityEntry {
			return CityEntry{ID: location.ID, Name: location.Name, Address: location.Address, State: location.State, Zip: location.Zip}
		},
	)
	snapshot.ByState = groupBy(locations,
		func(location store.Location) string { return location.State },
		func(location store.Location) StateEntry {
			return StateEntry{ID: location.ID, Name: location.Name, Address: location.Address, City: location.City, Zip: location.Zip}
		},
	)

	return snapshot, nil
}

// The query already filters on the counters; they are checked again so nothing full is ever written.
func openOnly(openings []store.Opening) []store.Opening {
	open := make([]store.Opening, 0, len(openings))
	for _, opening := range openings {
		if opening.Open() {
			open = append(open, opening)
		}
	}

	return open
}

// groupBy partitions locations by exact key equality, keeping groups and members in first-seen order.
func groupBy[T any](locations []store.Location, key func(store.Location) string, entry func(store.Location) T) []Group[T] {
	var groups []Group[T]
	index := make(map[string]int)
	for _, location := range locations {
		k := key(location)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[T]{Key: k})
		}
		groups[i].Locations = append(groups[i].Locations, entry(location))
	}

	return groups
}
