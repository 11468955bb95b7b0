package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reportColumns = `id, type, description, latitude, longitude, address, images, priority, status, emergency, ai_analysis, user_id, created_at, updated_at`

type aiAnalysisJSON struct {
	SuggestedType     *string `json:"suggested_type,omitempty"`
	SuggestedPriority *string `json:"suggested_priority,omitempty"`
	Confidence        float64 `json:"confidence"`
	Description       *string `json:"description,omitempty"`
}

// FindReports возвращает отчёты по query в порядке created_at, seq
func (p *PostgresStorage) FindReports(ctx context.Context, query storage.ReportQuery) ([]storage.Report, error) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(clause string, v string) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if query.Status != nil {
		add("status = $%d", *query.Status)
	}
	if query.Priority != nil {
		add("priority = $%d", *query.Priority)
	}
	if query.Type != nil {
		add("type = $%d", *query.Type)
	}
	if query.ExcludeStatus != nil {
		add("status <> $%d", *query.ExcludeStatus)
	}

	q := `SELECT ` + reportColumns + ` FROM reports`
	if len(clauses) > 0 {
		q += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	q += ` ORDER BY created_at ASC, seq ASC`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer rows.Close()

	reports := []storage.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *r)
	}

	return reports, rows.Err()
}

// GetReport возвращает отчёт по ID
func (p *PostgresStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	r, err := scanReport(p.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return r, nil
}

// InsertReport сохраняет отчёт
func (p *PostgresStorage) InsertReport(ctx context.Context, report *storage.Report) (uuid.UUID, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	images := report.Images
	if images == nil {
		images = []string{}
	}

	var ai []byte
	if report.AIAnalysis != nil {
		var err error
		ai, err = json.Marshal(aiAnalysisJSON{
			SuggestedType:     report.AIAnalysis.SuggestedType,
			SuggestedPriority: report.AIAnalysis.SuggestedPriority,
			Confidence:        report.AIAnalysis.Confidence,
			Description:       report.AIAnalysis.Description,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode ai analysis: %w", err)
		}
	}

	q := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := p.pool.Exec(ctx, q,
		report.ID,
		report.Type,
		report.Description,
		report.Latitude,
		report.Longitude,
		report.Address,
		images,
		report.Priority,
		report.Status,
		report.Emergency,
		ai,
		report.UserID,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return report.ID, nil
}

// UpdateReport применяет patch и возвращает обновлённый отчёт
func (p *PostgresStorage) UpdateReport(ctx context.Context, id uuid.UUID, patch storage.ReportPatch) (*storage.Report, error) {
	q := `
		UPDATE reports
		SET status = COALESCE($2, status),
		    updated_at = COALESCE($3, updated_at)
		WHERE id = $1
		RETURNING ` + reportColumns

	var updatedAt *time.Time
	if patch.UpdatedAt != nil {
		t := patch.UpdatedAt.UTC()
		updatedAt = &t
	}

	r, err := scanReport(p.pool.QueryRow(ctx, q, id, patch.Status, updatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	return r, nil
}

// DeleteReport удаляет отчёт
func (p *PostgresStorage) DeleteReport(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := p.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CountReports возвращает количество отчётов
func (p *PostgresStorage) CountReports(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

func scanReport(row pgx.Row) (*storage.Report, error) {
	var (
		r  storage.Report
		ai []byte
	)

	err := row.Scan(
		&r.ID,
		&r.Type,
		&r.Description,
		&r.Latitude,
		&r.Longitude,
		&r.Address,
		&r.Images,
		&r.Priority,
		&r.Status,
		&r.Emergency,
		&ai,
		&r.UserID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(ai) > 0 {
		var a aiAnalysisJSON
		if err := json.Unmarshal(ai, &a); err != nil {
			return nil, fmt.Errorf("invalid ai_analysis column: %w", err)
		}
		r.AIAnalysis = &storage.AIAnalysis{
			SuggestedType:     a.SuggestedType,
			SuggestedPriority: a.SuggestedPriority,
			Confidence:        a.Confidence,
			Description:       a.Description,
		}
	}

	return &r, nil
}
