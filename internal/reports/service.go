package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/dedup"
	"github.com/fdg312/cityfix/internal/geo"
	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
)

// Notifier is told about newly created emergency reports.
type Notifier interface {
	NotifyEmergency(ctx context.Context, report ReportDTO) error
}

// Service is the lifecycle manager: the only code that creates reports,
// changes their status or deletes them.
type Service struct {
	storage   storage.ReportsStorage
	engine    *dedup.Engine
	locker    dedup.Locker
	notifier  Notifier
	timeout   time.Duration
	maxImages int
	now       func() time.Time
}

// NewService creates a new reports service. A nil locker means an in-process
// LocalLocker; a nil notifier disables emergency notifications.
func NewService(st storage.ReportsStorage, locker dedup.Locker, notifier Notifier, cfg *config.Config) *Service {
	if locker == nil {
		locker = dedup.NewLocalLocker()
	}

	maxImages := 3
	var timeout time.Duration
	if cfg != nil {
		if cfg.ReportMaxImages > 0 {
			maxImages = cfg.ReportMaxImages
		}
		if cfg.StorageTimeoutSeconds > 0 {
			timeout = time.Duration(cfg.StorageTimeoutSeconds) * time.Second
		}
	}

	return &Service{
		storage:   st,
		engine:    dedup.NewEngine(st),
		locker:    locker,
		notifier:  notifier,
		timeout:   timeout,
		maxImages: maxImages,
		now:       time.Now,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create validates the submission, rejects it if it duplicates an open
// report nearby and otherwise stores it as pending.
func (s *Service) Create(ctx context.Context, req CreateReportRequest) (*ReportDTO, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	report, err := s.createLocked(ctx, req)
	if err != nil {
		return nil, err
	}

	dto := toDTO(report)
	if dto.Emergency && s.notifier != nil {
		if err := s.notifier.NotifyEmergency(ctx, dto); err != nil {
			log.Printf("WARN reports: emergency notification failed id=%s: %v", dto.ID, err)
		}
	}

	return &dto, nil
}

// createLocked holds the dedup keys for the candidate across check and insert,
// so two concurrent submissions of the same issue cannot both pass the check.
func (s *Service) createLocked(ctx context.Context, req CreateReportRequest) (*storage.Report, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, dedup.LockKeys(req.Type, req.Location.Latitude)...)
	if err != nil {
		return nil, &StorageError{Op: "lock", Err: err}
	}
	defer unlock()

	dup, err := s.engine.Check(ctx, dedup.Candidate{
		Type:  req.Type,
		Point: geo.Point{Lat: req.Location.Latitude, Lng: req.Location.Longitude},
	})
	if err != nil {
		return nil, &StorageError{Op: "find", Err: err}
	}
	if dup != nil {
		return nil, &DuplicateReportError{ExistingID: dup.ID}
	}

	now := s.timestamp()
	report := &storage.Report{
		ID:          uuid.New(),
		Type:        req.Type,
		Description: req.Description,
		Latitude:    req.Location.Latitude,
		Longitude:   req.Location.Longitude,
		Address:     req.Location.Address,
		Images:      append([]string{}, req.Images...),
		Priority:    derivePriority(req),
		Status:      storage.StatusPending,
		Emergency:   req.Emergency,
		UserID:      req.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.AIAnalysis != nil {
		report.AIAnalysis = &storage.AIAnalysis{
			SuggestedType:     req.AIAnalysis.SuggestedType,
			SuggestedPriority: req.AIAnalysis.SuggestedPriority,
			Confidence:        req.AIAnalysis.Confidence,
			Description:       req.AIAnalysis.Description,
		}
	}

	if _, err := s.storage.InsertReport(ctx, report); err != nil {
		return nil, &StorageError{Op: "insert", Err: err}
	}

	return report, nil
}

// derivePriority: emergencies are always high; otherwise the classifier's
// suggestion when present; otherwise medium.
func derivePriority(req CreateReportRequest) string {
	if req.Emergency {
		return storage.PriorityHigh
	}
	if req.AIAnalysis != nil && req.AIAnalysis.SuggestedPriority != nil {
		return *req.AIAnalysis.SuggestedPriority
	}
	return storage.PriorityMedium
}

func (s *Service) validateCreate(req CreateReportRequest) error {
	if !IsValidType(req.Type) {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("must be one of %s", strings.Join(Types, ", "))}
	}
	if strings.TrimSpace(req.Description) == "" {
		return &ValidationError{Field: "description", Message: "must not be empty"}
	}

	p := geo.Point{Lat: req.Location.Latitude, Lng: req.Location.Longitude}
	if err := p.Validate(); err != nil {
		return &ValidationError{Field: "location", Message: err.Error()}
	}
	if p.IsUnset() {
		return &ValidationError{Field: "location", Message: "location is not set"}
	}

	if len(req.Images) > s.maxImages {
		return &ValidationError{Field: "images", Message: fmt.Sprintf("at most %d images allowed", s.maxImages)}
	}
	for _, img := range req.Images {
		if strings.TrimSpace(img) == "" {
			return &ValidationError{Field: "images", Message: "image handle must not be empty"}
		}
	}

	if a := req.AIAnalysis; a != nil {
		if math.IsNaN(a.Confidence) || a.Confidence < 0 || a.Confidence > 1 {
			return &ValidationError{Field: "ai_analysis.confidence", Message: "must be within [0, 1]"}
		}
		if a.SuggestedType != nil && !IsValidType(*a.SuggestedType) {
			return &ValidationError{Field: "ai_analysis.suggested_type", Message: "unknown report type"}
		}
		if a.SuggestedPriority != nil && !IsValidPriority(*a.SuggestedPriority) {
			return &ValidationError{Field: "ai_analysis.suggested_priority", Message: "must be high, medium or low"}
		}
	}

	return nil
}

// List returns every report in storage order (oldest first).
func (s *Service) List(ctx context.Context) ([]ReportDTO, error) {
	return s.Filter(ctx, Filter{})
}

// Filter returns the reports matching every provided criterion.
func (s *Service) Filter(ctx context.Context, f Filter) ([]ReportDTO, error) {
	if f.Status != nil && !IsValidStatus(*f.Status) {
		return nil, &ValidationError{Field: "status", Message: "unknown status"}
	}
	if f.Priority != nil && !IsValidPriority(*f.Priority) {
		return nil, &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	if f.Type != nil && !IsValidType(*f.Type) {
		return nil, &ValidationError{Field: "type", Message: "unknown report type"}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rs, err := s.storage.FindReports(ctx, storage.ReportQuery{
		Status:   f.Status,
		Priority: f.Priority,
		Type:     f.Type,
	})
	if err != nil {
		return nil, &StorageError{Op: "find", Err: err}
	}

	return toDTOs(rs), nil
}

// Get returns one report or ErrReportNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ReportDTO, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(r)
	return &dto, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*storage.Report, error) {
	r, err := s.storage.GetReport(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return r, nil
}

// UpdateStatus moves a report to any of the four states and refreshes its
// updated_at.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*ReportDTO, error) {
	if !IsValidStatus(status) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", "))}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys := []string{dedup.ReportKey(id)}
	if status != storage.StatusResolved {
		// Reopening makes the report visible to dedup again, so it must not
		// interleave with a nearby Create. Type and location never change.
		current, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, dedup.LockKeys(current.Type, current.Latitude)...)
	}

	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, &StorageError{Op: "lock", Err: err}
	}
	defer unlock()

	now := s.timestamp()
	r, err := s.storage.UpdateReport(ctx, id, storage.ReportPatch{Status: &status, UpdatedAt: &now})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "update", Err: err}
	}

	dto := toDTO(r)
	return &dto, nil
}

// Delete removes a report permanently. Only pending reports may be deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, dedup.ReportKey(id))
	if err != nil {
		return &StorageError{Op: "lock", Err: err}
	}
	defer unlock()

	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != storage.StatusPending {
		return &InvalidStateError{ID: id, Status: r.Status, Op: "delete"}
	}

	deleted, err := s.storage.DeleteReport(ctx, id)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if !deleted {
		return ErrReportNotFound
	}

	return nil
}

// Count returns the number of stored reports.
func (s *Service) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.storage.CountReports(ctx)
	if err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}
