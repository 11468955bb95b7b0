package memory

import (
	"context"
	"fmt"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
)

// FindReports возвращает отчёты, подходящие под query, в порядке вставки
func (m *MemoryStorage) FindReports(ctx context.Context, query storage.ReportQuery) ([]storage.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]storage.Report, 0, len(m.order))
	for _, id := range m.order {
		r := m.reports[id]
		if query.Matches(*r) {
			result = append(result, r.Clone())
		}
	}

	return result, nil
}

// GetReport возвращает отчёт по ID
func (m *MemoryStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := r.Clone()
	return &out, nil
}

// InsertReport сохраняет копию отчёта
func (m *MemoryStorage) InsertReport(ctx context.Context, report *storage.Report) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if _, exists := m.reports[report.ID]; exists {
		return uuid.Nil, fmt.Errorf("report %s already exists", report.ID)
	}

	stored := report.Clone()
	m.reports[report.ID] = &stored
	m.order = append(m.order, report.ID)

	return report.ID, nil
}

// UpdateReport применяет patch к отчёту
func (m *MemoryStorage) UpdateReport(ctx context.Context, id uuid.UUID, patch storage.ReportPatch) (*storage.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.UpdatedAt != nil {
		r.UpdatedAt = *patch.UpdatedAt
	}

	out := r.Clone()
	return &out, nil
}

// DeleteReport удаляет отчёт
func (m *MemoryStorage) DeleteReport(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[id]; !ok {
		return false, nil
	}

	delete(m.reports, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	return true, nil
}

// CountReports возвращает количество отчётов
func (m *MemoryStorage) CountReports(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.reports), nil
}
