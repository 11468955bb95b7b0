package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestReportQueryMatches(t *testing.T) {
	r := Report{
		ID:       uuid.New(),
		Type:     "pothole",
		Priority: "medium",
		Status:   "pending",
	}

	tests := []struct {
		name  string
		query ReportQuery
		want  bool
	}{
		{"empty query matches", ReportQuery{}, true},
		{"status match", ReportQuery{Status: strPtr("pending")}, true},
		{"status mismatch", ReportQuery{Status: strPtr("resolved")}, false},
		{"priority and type", ReportQuery{Priority: strPtr("medium"), Type: strPtr("pothole")}, true},
		{"type mismatch", ReportQuery{Type: strPtr("graffiti")}, false},
		{"exclude other status", ReportQuery{ExcludeStatus: strPtr("resolved")}, true},
		{"exclude own status", ReportQuery{ExcludeStatus: strPtr("pending")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportCloneIsDeep(t *testing.T) {
	addr := "MG Road"
	suggested := "pothole"
	orig := Report{
		ID:        uuid.New(),
		Address:   &addr,
		Images:    []string{"images/a"},
		CreatedAt: time.Now(),
		AIAnalysis: &AIAnalysis{
			SuggestedType: &suggested,
			Confidence:    0.9,
		},
	}

	c := orig.Clone()
	c.Images[0] = "images/b"
	*c.Address = "Brigade Road"
	*c.AIAnalysis.SuggestedType = "trash"

	if orig.Images[0] != "images/a" {
		t.Errorf("images shared with clone")
	}
	if *orig.Address != "MG Road" {
		t.Errorf("address shared with clone")
	}
	if *orig.AIAnalysis.SuggestedType != "pothole" {
		t.Errorf("ai analysis shared with clone")
	}
}
