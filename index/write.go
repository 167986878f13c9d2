// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ktong/lpassistant/store"
)

// Names of the files written by Write, in upload order.
const (
	FileAvailable     = "all_available_locations_and_positions.json"
	FileDetails       = "locations_and_positions_details.json"
	FileAvailableText = "available_locations_and_positions.txt"
	FileDetailsText   = "locations_and_positions_details.txt"
	FileByCityText    = "locations_by_city.txt"
	FileByStateText   = "locations_by_state.txt"
)

const (
	// Delimiter ends every block of the text files.
	Delimiter = "----------"

	filePermission = 0o644
	jsonIndent     = "    "
)

type (
	// AvailableDocument is the layout of FileAvailable.
	AvailableDocument struct {
		Positions []store.PositionRef `json:"all_available_positions"`
		Locations []LocationRef       `json:"all_available_locations"`
		ByCity    []Group[CityEntry]  `json:"locations_by_city"`
		ByState   []Group[StateEntry] `json:"locations_by_state"`
	}
	// DetailsDocument is the layout of FileDetails.
	DetailsDocument struct {
		Locations []LocationDetails `json:"locations_details"`
	}
)

// Write renders the snapshot into dir and returns the paths of the files written.
// Every file is replaced as a whole; a reader never sees a partially written file.
func Write(dir string, snapshot Snapshot) ([]string, error) {
	available, err := marshalIndent(AvailableDocument{
		Positions: nonNil(snapshot.Positions),
		Locations: nonNil(snapshot.Locations),
		ByCity:    nonNil(snapshot.ByCity),
		ByState:   nonNil(snapshot.ByState),
	})
	if err != nil {
		return nil, err
	}
	details, err := marshalIndent(DetailsDocument{Locations: nonNil(snapshot.Details)})
	if err != nil {
		return nil, err
	}

	files := []struct {
		name    string
		content []byte
	}{
		{name: FileAvailable, content: available},
		{name: FileDetails, content: details},
		{name: FileAvailableText, content: availableText(snapshot)},
		{name: FileDetailsText, content: detailsText(snapshot)},
		{name: FileByCityText, content: groupsText("City", snapshot.ByCity, func(e CityEntry) string {
			return fmt.Sprintf("- %s (location id %d), %s, %s %s", e.Name, e.ID, e.Address, e.State, e.Zip)
		})},
		{name: FileByStateText, content: groupsText("State", snapshot.ByState, func(e StateEntry) string {
			return fmt.Sprintf("- %s (location id %d), %s, %s %s", e.Name, e.ID, e.Address, e.City, e.Zip)
		})},
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeFile(path, file.content); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func marshalIndent(document any) ([]byte, error) {
	content, err := json.MarshalIndent(document, "", jsonIndent)
	if err != nil {
		return nil, fmt.Errorf("marshal index document: %w", err)
	}

	return append(content, '\n'), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

// writeFile writes to a temporary file next to path and renames it over path.
func writeFile(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(filePermission); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

type blocks struct {
	bytes.Buffer
}

func (b *blocks) line(format string, args ...any) {
	fmt.Fprintf(&b.Buffer, format, args...)
	b.WriteByte('\n')
}

func (b *blocks) end() {
	b.WriteString(Delimiter)
	b.WriteByte('\n')
}

func availableText(snapshot Snapshot) []byte {
	var b blocks
	for _, position := range snapshot.Positions {
		b.line("Position ID: %d", position.ID)
		b.line("Position: %s", position.Name)
		b.end()
	}
	for _, location := range snapshot.Locations {
		b.line("Location ID: %d", location.ID)
		b.line("Location: %s", location.Name)
		b.line("City: %s", location.City)
		b.line("State: %s", location.State)
		b.end()
	}

	return b.Bytes()
}

func detailsText(snapshot Snapshot) []byte {
	var b blocks
	for _, location := range snapshot.Details {
		b.line("Location ID: %d", location.ID)
		b.line("Location: %s", location.Name)
		b.line("Address: %s, %s, %s %s", location.Address, location.City, location.State, location.Zip)
		b.line("Phone: %s", location.Phone)
		if len(location.Positions) == 0 {
			b.line("Open positions: none")
		} else {
			b.line("Open positions:")
		}
		for _, opening := range location.Positions {
			b.line("  - %s (position id %d): %d of %d openings available",
				opening.Name, opening.PositionID, opening.MaxOpenings-opening.FilledOpenings, opening.MaxOpenings)
			b.line("    Description: %s", opening.Description)
			b.line("    Key responsibilities: %s", strings.Join(opening.KeyResponsibilities, "; "))
			b.line("    Qualifications: %s", strings.Join(opening.Qualifications, "; "))
			b.line("    Benefits: %s", strings.Join(opening.Benefits, "; "))
			b.line("    Salary: %s", strings.Join(strings.Fields(
				opening.SalaryRange+" "+opening.SalaryCurrency+" "+perPeriod(opening.SalaryPeriod),
			), " "))
			b.line("    Job type: %s", opening.JobType)
			b.line("    Location type: %s", opening.LocationType)
		}
		b.end()
	}

	return b.Bytes()
}

func perPeriod(period string) string {
	if period == "" {
		return ""
	}

	return "per " + period
}

func groupsText[T any](label string, groups []Group[T], entry func(T) string) []byte {
	var b blocks
	for _, group := range groups {
		b.line("%s: %s", label, group.Key)
		for _, location := range group.Locations {
			b.line("%s", entry(location))
		}
		b.end()
	}

	return b.Bytes()
}
