package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that text ordering equals time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const reportColumns = `id, type, description, latitude, longitude, address, images, priority, status, emergency, ai_analysis, user_id, created_at, updated_at`

// SQLiteStorage: файловая реализация ReportsStorage на modernc.org/sqlite.
type SQLiteStorage struct {
	db *sql.DB
}

// New opens (or creates) the database file at path and ensures the schema.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer keeps SQLITE_BUSY out of the request path
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s, err := NewWithDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already opened database and runs the schema migration.
func NewWithDB(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	s := &SQLiteStorage{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		address TEXT,
		images TEXT NOT NULL DEFAULT '[]',
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		emergency INTEGER NOT NULL DEFAULT 0,
		ai_analysis TEXT,
		user_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_type_status ON reports (type, status);`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// FindReports возвращает отчёты, подходящие под query
func (s *SQLiteStorage) FindReports(ctx context.Context, query storage.ReportQuery) ([]storage.Report, error) {
	where, args := buildWhere(query)
	q := `SELECT ` + reportColumns + ` FROM reports` + where + ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (s *SQLiteStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	r, err := scanReport(s.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// InsertReport сохраняет отчёт одним INSERT
func (s *SQLiteStorage) InsertReport(ctx context.Context, report *storage.Report) (uuid.UUID, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	images, aiAnalysis, err := encodeJSONFields(report)
	if err != nil {
		return uuid.Nil, err
	}

	q := `INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		report.ID.String(),
		report.Type,
		report.Description,
		report.Latitude,
		report.Longitude,
		report.Address,
		images,
		report.Priority,
		report.Status,
		report.Emergency,
		aiAnalysis,
		report.UserID,
		report.CreatedAt.UTC().Format(timeLayout),
		report.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return report.ID, nil
}

// UpdateReport применяет patch и возвращает обновлённый отчёт
func (s *SQLiteStorage) UpdateReport(ctx context.Context, id uuid.UUID, patch storage.ReportPatch) (*storage.Report, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, patch.UpdatedAt.UTC().Format(timeLayout))
	}

	if len(sets) > 0 {
		args = append(args, id.String())
		q := `UPDATE reports SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update report: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to update report: %w", err)
		}
		if n == 0 {
			return nil, storage.ErrNotFound
		}
	}

	return s.GetReport(ctx, id)
}

// DeleteReport удаляет отчёт
func (s *SQLiteStorage) DeleteReport(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	return n > 0, nil
}

// CountReports возвращает количество отчётов
func (s *SQLiteStorage) CountReports(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

func buildWhere(query storage.ReportQuery) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if query.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *query.Status)
	}
	if query.Priority != nil {
		clauses = append(clauses, "priority = ?")
		args = append(args, *query.Priority)
	}
	if query.Type != nil {
		clauses = append(clauses, "type = ?")
		args = append(args, *query.Type)
	}
	if query.ExcludeStatus != nil {
		clauses = append(clauses, "status <> ?")
		args = append(args, *query.ExcludeStatus)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

type aiAnalysisJSON struct {
	SuggestedType     *string `json:"suggested_type,omitempty"`
	SuggestedPriority *string `json:"suggested_priority,omitempty"`
	Confidence        float64 `json:"confidence"`
	Description       *string `json:"description,omitempty"`
}

func encodeJSONFields(r *storage.Report) (string, *string, error) {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode images: %w", err)
	}

	if r.AIAnalysis == nil {
		return string(imagesJSON), nil, nil
	}
	aiJSON, err := json.Marshal(aiAnalysisJSON{
		SuggestedType:     r.AIAnalysis.SuggestedType,
		SuggestedPriority: r.AIAnalysis.SuggestedPriority,
		Confidence:        r.AIAnalysis.Confidence,
		Description:       r.AIAnalysis.Description,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode ai analysis: %w", err)
	}
	ai := string(aiJSON)
	return string(imagesJSON), &ai, nil
}

func scanReport(row rowScanner) (*storage.Report, error) {
	var (
		r          storage.Report
		id         string
		address    sql.NullString
		images     string
		aiAnalysis sql.NullString
		userID     sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&id,
		&r.Type,
		&r.Description,
		&r.Latitude,
		&r.Longitude,
		&address,
		&images,
		&r.Priority,
		&r.Status,
		&r.Emergency,
		&aiAnalysis,
		&userID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", id, err)
	}
	if address.Valid {
		r.Address = &address.String
	}
	if userID.Valid {
		r.UserID = &userID.String
	}
	if err := json.Unmarshal([]byte(images), &r.Images); err != nil {
		return nil, fmt.Errorf("invalid images column: %w", err)
	}
	if aiAnalysis.Valid {
		var a aiAnalysisJSON
		if err := json.Unmarshal([]byte(aiAnalysis.String), &a); err != nil {
			return nil, fmt.Errorf("invalid ai_analysis column: %w", err)
		}
		r.AIAnalysis = &storage.AIAnalysis{
			SuggestedType:     a.SuggestedType,
			SuggestedPriority: a.SuggestedPriority,
			Confidence:        a.Confidence,
			Description:       a.Description,
		}
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return &r, nil
}
