package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Статусы жизненного цикла отчёта
const (
	StatusPending       = "pending"
	StatusInvestigating = "investigating"
	StatusInProgress    = "in_progress"
	StatusResolved      = "resolved"
)

// Приоритеты
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ErrNotFound is returned by adapters when no report has the requested id.
var ErrNotFound = errors.New("report not found")

// Report: запись о городской проблеме в том виде, в каком её хранят адаптеры.
type Report struct {
	ID          uuid.UUID
	Type        string
	Description string
	Latitude    float64
	Longitude   float64
	Address     *string
	Images      []string
	Priority    string
	Status      string
	Emergency   bool
	AIAnalysis  *AIAnalysis
	UserID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIAnalysis: рекомендация классификатора, приложенная к отчёту.
type AIAnalysis struct {
	SuggestedType     *string
	SuggestedPriority *string
	Confidence        float64
	Description       *string
}

// Clone returns a deep copy so callers never share slices or pointers with
// an adapter's internal state.
func (r Report) Clone() Report {
	out := r
	if r.Images != nil {
		out.Images = append([]string(nil), r.Images...)
	}
	if r.Address != nil {
		addr := *r.Address
		out.Address = &addr
	}
	if r.UserID != nil {
		uid := *r.UserID
		out.UserID = &uid
	}
	if r.AIAnalysis != nil {
		a := *r.AIAnalysis
		if a.SuggestedType != nil {
			v := *a.SuggestedType
			a.SuggestedType = &v
		}
		if a.SuggestedPriority != nil {
			v := *a.SuggestedPriority
			a.SuggestedPriority = &v
		}
		if a.Description != nil {
			v := *a.Description
			a.Description = &v
		}
		out.AIAnalysis = &a
	}
	return out
}

// ReportQuery is the find predicate. Nil fields match everything.
type ReportQuery struct {
	Status        *string
	Priority      *string
	Type          *string
	ExcludeStatus *string
}

// Matches evaluates the predicate in process.
func (q ReportQuery) Matches(r Report) bool {
	if q.Status != nil && r.Status != *q.Status {
		return false
	}
	if q.Priority != nil && r.Priority != *q.Priority {
		return false
	}
	if q.Type != nil && r.Type != *q.Type {
		return false
	}
	if q.ExcludeStatus != nil && r.Status == *q.ExcludeStatus {
		return false
	}
	return true
}

// ReportPatch lists the fields an update may change. Nil fields are left as is.
type ReportPatch struct {
	Status    *string
	UpdatedAt *time.Time
}

// ReportsStorage: контракт хранилища отчётов. Адаптеры не содержат бизнес-правил.
type ReportsStorage interface {
	// FindReports возвращает отчёты, подходящие под query, в порядке created_at ASC
	FindReports(ctx context.Context, query ReportQuery) ([]Report, error)

	// GetReport возвращает отчёт по ID или ErrNotFound
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)

	// InsertReport сохраняет отчёт одной операцией и возвращает его ID
	InsertReport(ctx context.Context, report *Report) (uuid.UUID, error)

	// UpdateReport применяет patch и возвращает обновлённый отчёт или ErrNotFound
	UpdateReport(ctx context.Context, id uuid.UUID, patch ReportPatch) (*Report, error)

	// DeleteReport удаляет отчёт; false, если такого не было
	DeleteReport(ctx context.Context, id uuid.UUID) (bool, error)

	// CountReports возвращает общее количество отчётов
	CountReports(ctx context.Context) (int, error)

	// Close закрывает соединение (для Postgres, SQLite, Mongo)
	Close() error
}
