// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type (
	Location struct {
		ID      int64  `db:"id"      json:"id"`
		Name    string `db:"name"    json:"name"`
		Address string `db:"address" json:"address"`
		City    string `db:"city"    json:"city"`
		State   string `db:"state"   json:"state"`
		Zip     string `db:"zip"     json:"zip"`
		Phone   string `db:"phone"   json:"phone"`
	}

	// PositionRef identifies an active position with at least one open assignment.
	PositionRef struct {
		ID   int64  `db:"id"   json:"id"`
		Name string `db:"name" json:"name"`
	}

	// Opening is an open assignment of a position at a location, with the position details.
	Opening struct {
		PositionID          int64    `db:"position_id"          json:"position_id"`
		Name                string   `db:"name"                 json:"name"`
		Description         string   `db:"description"          json:"description"`
		KeyResponsibilities []string `db:"key_responsibilities" json:"key_responsibilities"`
		Qualifications      []string `db:"qualifications"       json:"qualifications"`
		Benefits            []string `db:"benefits"             json:"benefits"`
		SalaryRange         string   `db:"salary_range"         json:"salary_range"`
		SalaryCurrency      string   `db:"salary_currency"      json:"salary_currency"`
		SalaryPeriod        string   `db:"salary_period"        json:"salary_period"`
		JobType             string   `db:"job_type"             json:"job_type"`
		LocationType        string   `db:"location_type"        json:"location_type"`
		MaxOpenings         int      `db:"max_openings"         json:"max_openings"`
		FilledOpenings      int      `db:"filled_openings"      json:"filled_openings"`
	}
)

// IsOpen reports whether an assignment still has unfilled openings.
func IsOpen(maxOpenings, filledOpenings int) bool {
	return filledOpenings < maxOpenings
}

// Open applies IsOpen to the opening's counters.
func (o Opening) Open() bool {
	return IsOpen(o.MaxOpenings, o.FilledOpenings)
}

const (
	activeLocationsQuery = `
		SELECT id, COALESCE(name, '') AS name, COALESCE(address, '') AS address,
		       COALESCE(city, '') AS city, COALESCE(state, '') AS state,
		       COALESCE(zip::text, '') AS zip, COALESCE(phone, '') AS phone
		FROM locations
		WHERE is_active = TRUE
		ORDER BY id`

	openPositionsQuery = `
		SELECT DISTINCT p.id, COALESCE(p.name, '') AS name
		FROM positions p
		JOIN locations_positions lp ON p.id = lp.position_id
		JOIN locations l ON l.id = lp.location_id
		WHERE p.is_active = TRUE
		  AND l.is_active = TRUE
		  AND lp.filled_openings < lp.max_openings
		ORDER BY p.id`

	openPositionsAtQuery = `
		SELECT lp.position_id, COALESCE(p.name, '') AS name, COALESCE(p.description, '') AS description,
		       p.key_responsibilities, p.qualifications, p.benefits,
		       COALESCE(p.salary_range::text, '') AS salary_range,
		       COALESCE(p.salary_currency, '') AS salary_currency,
		       COALESCE(p.salary_period, '') AS salary_period,
		       COALESCE(p.job_type, '') AS job_type,
		       COALESCE(p.location_type, '') AS location_type,
		       lp.max_openings, lp.filled_openings
		FROM locations_positions lp
		JOIN positions p ON lp.position_id = p.id
		WHERE lp.location_id = $1
		  AND p.is_active = TRUE
		  AND lp.filled_openings < lp.max_openings
		ORDER BY lp.position_id`
)

// ActiveLocations returns every active location ordered by id.
func (s *Store) ActiveLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.Query(ctx, activeLocationsQuery)
	if err != nil {
		return nil, fmt.Errorf("query active locations: %w", err)
	}

	locations, err := pgx.CollectRows(rows, pgx.RowToStructByName[Location])
	if err != nil {
		return nil, fmt.Errorf("collect active locations: %w", err)
	}

	return locations, nil
}

// OpenPositions returns the distinct active positions open at any active location.
func (s *Store) OpenPositions(ctx context.Context) ([]PositionRef, error) {
	rows, err := s.db.Query(ctx, openPositionsQuery)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}

	positions, err := pgx.CollectRows(rows, pgx.RowToStructByName[PositionRef])
	if err != nil {
		return nil, fmt.Errorf("collect open positions: %w", err)
	}

	return positions, nil
}

// OpenPositionsAt returns the open assignments of active positions at the location.
func (s *Store) OpenPositionsAt(ctx context.Context, locationID int64) ([]Opening, error) {
	rows, err := s.db.Query(ctx, openPositionsAtQuery, locationID)
	if err != nil {
		return nil, fmt.Errorf("query openings of location %d: %w", locationID, err)
	}

	openings, err := pgx.CollectRows(rows, pgx.RowToStructByName[Opening])
	if err != nil {
		return nil, fmt.Errorf("collect openings of location %d: %w", locationID, err)
	}

	return openings, nil
}
