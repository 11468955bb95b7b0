// Package dedup decides whether a new report repeats an open one nearby.
//
// A candidate is a duplicate of the first existing report, in enumeration
// order, that is not resolved, has the same type and lies within
// ThresholdMeters of the candidate's location.
package dedup

import (
	"context"

	"github.com/fdg312/cityfix/internal/geo"
	"github.com/fdg312/cityfix/internal/storage"
)

// ThresholdMeters is the inclusive duplicate radius.
const ThresholdMeters = 50.0

// distanceEpsilon absorbs float rounding so that a point placed exactly
// ThresholdMeters away still counts as a duplicate.
const distanceEpsilon = 1e-6

// Candidate is the part of a submission the policy looks at.
type Candidate struct {
	Type  string
	Point geo.Point
}

// FindDuplicate returns the first report in existing that the candidate
// duplicates, or nil.
func FindDuplicate(c Candidate, existing []storage.Report) *storage.Report {
	for i := range existing {
		r := &existing[i]
		if r.Status == storage.StatusResolved {
			continue
		}
		if r.Type != c.Type {
			continue
		}
		d := geo.Distance(c.Point, geo.Point{Lat: r.Latitude, Lng: r.Longitude})
		if d <= ThresholdMeters+distanceEpsilon {
			return r
		}
	}
	return nil
}

// Source is the read side of the report store the engine needs.
type Source interface {
	FindReports(ctx context.Context, query storage.ReportQuery) ([]storage.Report, error)
}

// Engine runs the duplicate policy against a report source.
type Engine struct {
	source Source
}

func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Check loads open reports of the candidate's type and returns the duplicate,
// if any. The query narrows the scan; FindDuplicate re-applies every rule, so
// an adapter that ignores part of the query still yields the right answer.
func (e *Engine) Check(ctx context.Context, c Candidate) (*storage.Report, error) {
	typ := c.Type
	resolved := storage.StatusResolved

	existing, err := e.source.FindReports(ctx, storage.ReportQuery{
		Type:          &typ,
		ExcludeStatus: &resolved,
	})
	if err != nil {
		return nil, err
	}

	return FindDuplicate(c, existing), nil
}
