// Package storagetest holds the behaviour every storage.ReportsStorage
// adapter must share. Adapter packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
)

// Factory returns a fresh, empty adapter for one subtest.
type Factory func(t *testing.T) storage.ReportsStorage

func ptr(s string) *string { return &s }

// NewReport builds a pending report with sensible defaults.
func NewReport(reportType string, lat, lng float64, createdAt time.Time) *storage.Report {
	return &storage.Report{
		ID:          uuid.New(),
		Type:        reportType,
		Description: "Large pothole near the bus stop",
		Latitude:    lat,
		Longitude:   lng,
		Images:      []string{},
		Priority:    "medium",
		Status:      "pending",
		CreatedAt:   createdAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:   createdAt.UTC().Truncate(time.Millisecond),
	}
}

// FixedTime is a stable creation time for tests that do not care about ordering.
func FixedTime() time.Time {
	return time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)
}

// Run executes the shared adapter contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		addr := "MG Road, Bengaluru"
		uid := "user-1"
		suggested := "pothole"
		r := NewReport("pothole", 12.9716, 77.5946, time.Now())
		r.Address = &addr
		r.UserID = &uid
		r.Images = []string{"images/one", "images/two"}
		r.Emergency = true
		r.Priority = "high"
		r.AIAnalysis = &storage.AIAnalysis{SuggestedType: &suggested, Confidence: 0.9}

		id, err := s.InsertReport(ctx, r)
		if err != nil {
			t.Fatalf("InsertReport: %v", err)
		}
		if id != r.ID {
			t.Fatalf("expected id %s, got %s", r.ID, id)
		}

		got, err := s.GetReport(ctx, id)
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if got.Type != "pothole" || got.Status != "pending" || got.Priority != "high" || !got.Emergency {
			t.Errorf("unexpected report: %+v", got)
		}
		if got.Latitude != 12.9716 || got.Longitude != 77.5946 {
			t.Errorf("coordinates changed: %v,%v", got.Latitude, got.Longitude)
		}
		if got.Address == nil || *got.Address != addr {
			t.Errorf("address lost: %v", got.Address)
		}
		if got.UserID == nil || *got.UserID != uid {
			t.Errorf("user id lost: %v", got.UserID)
		}
		if len(got.Images) != 2 || got.Images[0] != "images/one" || got.Images[1] != "images/two" {
			t.Errorf("images changed: %v", got.Images)
		}
		if got.AIAnalysis == nil || got.AIAnalysis.SuggestedType == nil || *got.AIAnalysis.SuggestedType != "pothole" {
			t.Errorf("ai analysis lost: %+v", got.AIAnalysis)
		}
		if !got.CreatedAt.Equal(r.CreatedAt) {
			t.Errorf("created_at changed: %v vs %v", got.CreatedAt, r.CreatedAt)
		}
	})

	t.Run("GetUnknownReturnsErrNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetReport(context.Background(), uuid.New())
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindAppliesQueryInCreationOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		a := NewReport("pothole", 12.97, 77.59, base)
		b := NewReport("trash", 12.98, 77.60, base.Add(time.Minute))
		c := NewReport("pothole", 12.99, 77.61, base.Add(2*time.Minute))
		c.Status = "resolved"
		d := NewReport("pothole", 13.00, 77.62, base.Add(3*time.Minute))
		d.Priority = "high"

		for _, r := range []*storage.Report{a, b, c, d} {
			if _, err := s.InsertReport(ctx, r); err != nil {
				t.Fatalf("InsertReport: %v", err)
			}
		}

		all, err := s.FindReports(ctx, storage.ReportQuery{})
		if err != nil {
			t.Fatalf("FindReports: %v", err)
		}
		assertIDs(t, all, a.ID, b.ID, c.ID, d.ID)

		open, err := s.FindReports(ctx, storage.ReportQuery{Type: ptr("pothole"), ExcludeStatus: ptr("resolved")})
		if err != nil {
			t.Fatalf("FindReports: %v", err)
		}
		assertIDs(t, open, a.ID, d.ID)

		high, err := s.FindReports(ctx, storage.ReportQuery{Priority: ptr("high"), Status: ptr("pending")})
		if err != nil {
			t.Fatalf("FindReports: %v", err)
		}
		assertIDs(t, high, d.ID)
	})

	t.Run("UpdatePatchesStatusAndTimestamp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := NewReport("water_leak", 19.0596, 72.8295, time.Now().Add(-time.Hour))
		if _, err := s.InsertReport(ctx, r); err != nil {
			t.Fatalf("InsertReport: %v", err)
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		updated, err := s.UpdateReport(ctx, r.ID, storage.ReportPatch{Status: ptr("investigating"), UpdatedAt: &now})
		if err != nil {
			t.Fatalf("UpdateReport: %v", err)
		}
		if updated.Status != "investigating" {
			t.Errorf("expected investigating, got %s", updated.Status)
		}
		if !updated.UpdatedAt.Equal(now) {
			t.Errorf("updated_at not refreshed: %v", updated.UpdatedAt)
		}
		if updated.Description != r.Description || updated.Type != r.Type {
			t.Errorf("untouched fields changed: %+v", updated)
		}

		_, err = s.UpdateReport(ctx, uuid.New(), storage.ReportPatch{Status: ptr("resolved")})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
		}
	})

	t.Run("DeleteAndCount", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := NewReport("graffiti", 28.6304, 77.2177, time.Now())
		b := NewReport("graffiti", 28.6404, 77.2277, time.Now().Add(time.Second))
		for _, r := range []*storage.Report{a, b} {
			if _, err := s.InsertReport(ctx, r); err != nil {
				t.Fatalf("InsertReport: %v", err)
			}
		}

		n, err := s.CountReports(ctx)
		if err != nil || n != 2 {
			t.Fatalf("expected count 2, got %d (%v)", n, err)
		}

		deleted, err := s.DeleteReport(ctx, a.ID)
		if err != nil || !deleted {
			t.Fatalf("expected delete to succeed, got %v (%v)", deleted, err)
		}

		deleted, err = s.DeleteReport(ctx, a.ID)
		if err != nil || deleted {
			t.Fatalf("expected second delete to report false, got %v (%v)", deleted, err)
		}

		n, err = s.CountReports(ctx)
		if err != nil || n != 1 {
			t.Fatalf("expected count 1, got %d (%v)", n, err)
		}

		rest, err := s.FindReports(ctx, storage.ReportQuery{})
		if err != nil {
			t.Fatalf("FindReports: %v", err)
		}
		assertIDs(t, rest, b.ID)
	})

	t.Run("ReturnedReportsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		r := NewReport("trash", 12.93, 77.62, time.Now())
		r.Images = []string{"images/a"}
		if _, err := s.InsertReport(ctx, r); err != nil {
			t.Fatalf("InsertReport: %v", err)
		}
		r.Images[0] = "mutated"

		got, err := s.GetReport(ctx, r.ID)
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if got.Images[0] != "images/a" {
			t.Errorf("adapter kept caller's slice: %v", got.Images)
		}
	})
}

func assertIDs(t *testing.T, got []storage.Report, want ...uuid.UUID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}
