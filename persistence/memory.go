// persistence/memory.go
package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/battleship/models"
)

// Memory keeps records for the life of the process. It backs the "none"
// driver and tests.
type Memory struct {
	records map[string]models.MatchRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.MatchRecord)}
}

func (m *Memory) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records[record.MatchID] = *record
	return nil
}

func (m *Memory) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	record, ok := m.records[matchID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (m *Memory) ListMatchRecords(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]models.MatchRecord, 0, len(m.records))
	for _, r := range m.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndedAt.After(result[j].EndedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) Close() error {
	return nil
}
