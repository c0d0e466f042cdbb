package rowstore

import (
	"context"
	"sync"
)

// Memory is a map-backed Store for dev mode and tests.
type Memory struct {
	mu   sync.RWMutex
	tabs map[string][][]string // first row is the header
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tabs: make(map[string][][]string)}
}

// Seed replaces tab with a header and the given data rows.
func (m *Memory) Seed(tab string, header []string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := [][]string{header}
	m.tabs[tab] = append(all, rows...)
}

// FindRow scans column col of tab for an exact whole-cell match.
func (m *Memory) FindRow(ctx context.Context, tab string, col int, value string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tabs[tab]
	if !ok {
		return nil, false, nil
	}
	for _, row := range rows {
		if col < len(row) && row[col] == value {
			out := make([]string, len(row))
			copy(out, row)
			return out, true, nil
		}
	}
	return nil, false, nil
}

// ReadTail returns up to n of the newest data rows in append order.
func (m *Memory) ReadTail(ctx context.Context, tab string, n int) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, ok := m.tabs[tab]
	if !ok || len(rows) < 2 {
		return nil, nil
	}
	data := rows[1:]
	if len(data) > n {
		data = data[len(data)-n:]
	}
	out := make([][]string, len(data))
	for i, row := range data {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Append adds row to tab, creating it with header when absent.
func (m *Memory) Append(ctx context.Context, tab string, header, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[tab]; !ok {
		m.tabs[tab] = [][]string{append([]string(nil), header...)}
	}
	m.tabs[tab] = append(m.tabs[tab], append([]string(nil), row...))
	return nil
}

// Rows returns a copy of all rows of tab including the header; test helper.
func (m *Memory) Rows(tab string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.tabs[tab]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
