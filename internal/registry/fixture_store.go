package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FixtureStore serves certificates from an in-memory list. It is used for
// local development when no registry database is configured.
type FixtureStore struct {
	data []SearchRow
}

// NewFixtureStore wraps rows.
func NewFixtureStore(rows []SearchRow) *FixtureStore {
	return &FixtureStore{data: rows}
}

// LoadFixtureStore reads a JSON array of certificates from path.
func LoadFixtureStore(path string) (*FixtureStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var rows []SearchRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return NewFixtureStore(rows), nil
}

func (f *FixtureStore) LookupCertificates(_ context.Context, idList string) ([]Certificate, error) {
	wanted := map[int]bool{}
	for _, id := range strings.Split(idList, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(id)); err == nil {
			wanted[n] = true
		}
	}
	var out []Certificate
	for _, row := range f.data {
		if wanted[row.ID] {
			out = append(out, row.Certificate)
		}
	}
	return out, nil
}

func (f *FixtureStore) SearchCertificates(_ context.Context, q SearchQuery) (*SearchResultSet, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Query))

	var matches []SearchRow
	for _, row := range f.data {
		if needle != "" && !strings.Contains(strings.ToLower(row.DecedentName), needle) {
			continue
		}
		if !yearInRange(row.RegisteredYear, q.StartYear, q.EndYear) {
			continue
		}
		matches = append(matches, row)
	}

	set := &SearchResultSet{Rows: []SearchRow{}}
	if q.Page < 1 || q.PageSize < 1 {
		return set, nil
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(matches) {
		return set, nil
	}
	end := min(start+q.PageSize, len(matches))
	for _, row := range matches[start:end] {
		row.ResultCount = len(matches)
		set.Rows = append(set.Rows, row)
	}
	return set, nil
}

func yearInRange(year string, start, end *int) bool {
	if start == nil && end == nil {
		return true
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	if start != nil && y < *start {
		return false
	}
	if end != nil && y > *end {
		return false
	}
	return true
}
