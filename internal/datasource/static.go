package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/seenimoa/cfpattern/pkg/models"
)

// StaticSource serves tables held in memory, keyed by target.
type StaticSource struct {
	mu     sync.RWMutex
	tables map[string]*models.Table
}

// NewStaticSource creates an empty in-memory source.
func NewStaticSource() *StaticSource {
	return &StaticSource{tables: make(map[string]*models.Table)}
}

// Name returns the data source name.
func (s *StaticSource) Name() string { return "static" }

// Put registers rows under target.
func (s *StaticSource) Put(target string, rows []models.RawRow) {
	s.mu.Lock()
	s.tables[target] = &models.Table{Source: target, Rows: rows}
	s.mu.Unlock()
}

// FetchRows returns a copy of the table registered under target.
func (s *StaticSource) FetchRows(ctx context.Context, target string) (*models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	t, ok := s.tables[target]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, ErrTableNotFound)
	}
	cp := *t
	cp.Rows = append([]models.RawRow(nil), t.Rows...)
	return &cp, nil
}
