package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fdg312/cityfix/internal/reports"
	"github.com/fdg312/cityfix/internal/storage"
)

// ReportLister is the read side of the lifecycle manager.
type ReportLister interface {
	Filter(ctx context.Context, f reports.Filter) ([]reports.ReportDTO, error)
}

// Service computes statistics and exports over the stored reports.
type Service struct {
	reports ReportLister
	now     func() time.Time
}

func NewService(lister ReportLister) *Service {
	return &Service{reports: lister, now: time.Now}
}

// Stats counts reports by status, priority and type.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	rs, err := s.reports.Filter(ctx, reports.Filter{})
	if err != nil {
		return nil, err
	}
	return computeStats(rs), nil
}

func computeStats(rs []reports.ReportDTO) *Stats {
	st := &Stats{
		Total:      len(rs),
		ByType:     make(map[string]int, len(reports.Types)),
		ByPriority: make(map[string]int, len(reports.Priorities)),
	}
	for _, t := range reports.Types {
		st.ByType[t] = 0
	}
	for _, p := range reports.Priorities {
		st.ByPriority[p] = 0
	}

	for _, r := range rs {
		switch r.Status {
		case storage.StatusPending:
			st.Pending++
		case storage.StatusInvestigating:
			st.Investigating++
		case storage.StatusInProgress:
			st.InProgress++
		case storage.StatusResolved:
			st.Resolved++
		}
		if r.Priority == storage.PriorityHigh {
			st.HighPriority++
		}
		if r.Emergency {
			st.Emergencies++
		}
		st.ByType[r.Type]++
		st.ByPriority[r.Priority]++
	}
	return st
}

// Export renders the filtered reports as CSV or PDF.
func (s *Service) Export(ctx context.Context, format string, f reports.Filter) (*Export, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, &reports.ValidationError{Field: "format", Message: "must be csv or pdf"}
	}

	rs, err := s.reports.Filter(ctx, f)
	if err != nil {
		return nil, err
	}
	sortForExport(rs)

	now := s.now().UTC()
	filename := fmt.Sprintf("cityfix-reports-%s.%s", now.Format("20060102-150405"), format)

	switch format {
	case FormatPDF:
		data, err := generatePDF(rs, f, now)
		if err != nil {
			return nil, err
		}
		return &Export{Data: data, ContentType: "application/pdf", Filename: filename}, nil
	default:
		data, err := generateCSV(rs)
		if err != nil {
			return nil, err
		}
		return &Export{Data: data, ContentType: "text/csv; charset=utf-8", Filename: filename}, nil
	}
}

// sortForExport puts emergencies first, then newest first.
func sortForExport(rs []reports.ReportDTO) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Emergency != rs[j].Emergency {
			return rs[i].Emergency
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
