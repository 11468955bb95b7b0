package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/fdg312/cityfix/internal/storage/storagetest"
)

func TestMemoryReportsStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.ReportsStorage {
		return New()
	})
}

func TestMemoryStorageHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := storagetest.NewReport("pothole", 12.9716, 77.5946, time.Now())
	if _, err := s.InsertReport(ctx, r); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	n, _ := s.CountReports(context.Background())
	if n != 0 {
		t.Fatalf("cancelled insert must not write, count=%d", n)
	}
}
