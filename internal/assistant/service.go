package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/fdg312/cityfix/internal/reports"
	"github.com/fdg312/cityfix/internal/storage"
	"github.com/fdg312/cityfix/internal/userctx"
	"github.com/google/uuid"
)

const openReportsShown = 5

var (
	ErrEmptyMessage = errors.New("message is empty")

	reportIDPattern = regexp.MustCompile(`id\s*[:#]?\s*([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
)

// ReportManager is the part of the lifecycle manager the assistant uses.
type ReportManager interface {
	Get(ctx context.Context, id uuid.UUID) (*reports.ReportDTO, error)
	Filter(ctx context.Context, f reports.Filter) ([]reports.ReportDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*reports.ReportDTO, error)
}

// Service answers chat messages from a fixed script. Every report lookup
// goes through the lifecycle manager.
type Service struct {
	reports ReportManager
	script  *Script
}

// NewService creates the assistant; a nil script means the embedded one.
func NewService(manager ReportManager, script *Script) *Service {
	if script == nil {
		script = DefaultScript()
	}
	return &Service{reports: manager, script: script}
}

// Greeting is the first message shown when a conversation opens.
func (s *Service) Greeting() Reply {
	return Reply{Reply: s.script.Greeting, Actions: s.script.DefaultActions}
}

// Reply handles one user message.
func (s *Service) Reply(ctx context.Context, message string) (*Reply, error) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	admin := userctx.IsAdmin(ctx)

	if msg == "help" {
		return s.help(admin), nil
	}

	if strings.Contains(msg, "status") && strings.Contains(msg, "id") {
		if id, ok := parseReportID(msg); ok {
			return s.statusOf(ctx, id), nil
		}
	}

	if strings.Contains(msg, "show") && (strings.Contains(msg, "open") || strings.Contains(msg, "pending")) {
		if !admin {
			return &Reply{Reply: s.script.AdminOnly, Actions: []Action{}}, nil
		}
		return s.openReports(ctx), nil
	}

	if strings.Contains(msg, "mark") && (strings.Contains(msg, "done") || strings.Contains(msg, "resolved")) {
		if id, ok := parseReportID(msg); ok {
			if !admin {
				return &Reply{Reply: s.script.AdminOnly, Actions: []Action{}}, nil
			}
			return s.markResolved(ctx, id), nil
		}
	}

	for _, f := range s.script.FAQ {
		if f.matches(msg) {
			return &Reply{Reply: f.Answer, Actions: nonNil(f.Actions)}, nil
		}
	}

	if strings.Contains(msg, "status") {
		return &Reply{
			Reply:   `Please include the report ID, for example "What's the status of ID 3f2b8c1e-5d4a-4e7b-9c61-2a0d8f4b7e19?"`,
			Actions: []Action{},
		}, nil
	}

	if containsAny(msg, s.script.IntentTriggers) {
		return s.reportIntent(msg), nil
	}

	return &Reply{Reply: s.script.Unknown, Actions: nonNil(s.script.DefaultActions)}, nil
}

func (s *Service) help(admin bool) *Reply {
	text := strings.TrimRight(s.script.Help, "\n")
	if admin {
		text += "\n\n" + strings.TrimRight(s.script.AdminHelp, "\n")
	}
	return &Reply{
		Reply: text,
		Actions: []Action{
			{Label: "Report Issue", Action: "I want to report an issue"},
			{Label: "Check Status", Action: "Check status of my report"},
			{Label: "What is this project?", Action: "What is this project?"},
		},
	}
}

func (s *Service) statusOf(ctx context.Context, id uuid.UUID) *Reply {
	r, err := s.reports.Get(ctx, id)
	if errors.Is(err, reports.ErrReportNotFound) {
		return notFound(id)
	}
	if err != nil {
		log.Printf("WARN assistant: status lookup failed id=%s: %v", id, err)
		return &Reply{Reply: "Sorry, I encountered an error while checking the status. Please try again later.", Actions: []Action{}}
	}

	text := fmt.Sprintf("Report ID: %s\nType: %s\nStatus: %s\nPriority: %s\nReported on: %s",
		r.ID, humanize(r.Type), humanize(r.Status), r.Priority, r.CreatedAt.Format("2006-01-02"))
	return &Reply{
		Reply:   text,
		Actions: []Action{{Label: "View Details", Action: "navigate:/report/" + r.ID.String()}},
	}
}

func (s *Service) openReports(ctx context.Context) *Reply {
	pending := storage.StatusPending
	open, err := s.reports.Filter(ctx, reports.Filter{Status: &pending})
	if err != nil {
		log.Printf("WARN assistant: open reports lookup failed: %v", err)
		return &Reply{Reply: "Sorry, I encountered an error while fetching open reports. Please try again later.", Actions: []Action{}}
	}
	if len(open) == 0 {
		return &Reply{Reply: "There are currently no open reports.", Actions: []Action{}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "There are %d open reports:\n\n", len(open))
	for i, r := range open {
		if i == openReportsShown {
			break
		}
		fmt.Fprintf(&b, "ID %s: %s - %s priority - %s\n", r.ID, humanize(r.Type), r.Priority, r.CreatedAt.Format("2006-01-02"))
	}
	if len(open) > openReportsShown {
		fmt.Fprintf(&b, "\n...and %d more reports.", len(open)-openReportsShown)
	}
	b.WriteString("\n\nYou can view all reports in the admin dashboard.")

	return &Reply{
		Reply:   b.String(),
		Actions: []Action{{Label: "Go to Admin Dashboard", Action: "navigate:/admin"}},
	}
}

func (s *Service) markResolved(ctx context.Context, id uuid.UUID) *Reply {
	_, err := s.reports.UpdateStatus(ctx, id, storage.StatusResolved)
	if errors.Is(err, reports.ErrReportNotFound) {
		return notFound(id)
	}
	if err != nil {
		log.Printf("WARN assistant: mark resolved failed id=%s: %v", id, err)
		return &Reply{Reply: "Sorry, I encountered an error while updating the report. Please try again later.", Actions: []Action{}}
	}

	return &Reply{
		Reply: fmt.Sprintf("Report ID %s has been marked as resolved.", id),
		Actions: []Action{
			{Label: "View Report", Action: "navigate:/report/" + id.String()},
			{Label: "Admin Dashboard", Action: "navigate:/admin"},
		},
	}
}

func (s *Service) reportIntent(msg string) *Reply {
	detected := reports.TypeOther
	for _, in := range s.script.Intents {
		if containsAny(msg, in.Any) {
			detected = in.Type
			break
		}
	}

	text := fmt.Sprintf("I understand you want to report a %s issue.\n\nWould you like to submit a detailed report with photos and location? Use the button below to open the report form.", humanize(detected))
	return &Reply{
		Reply:   text,
		Actions: []Action{{Label: "Go to Report Form", Action: "navigate:/report?type=" + detected}},
	}
}

func parseReportID(msg string) (uuid.UUID, bool) {
	m := reportIDPattern.FindStringSubmatch(msg)
	if m == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(m[1])
	return id, err == nil
}

func notFound(id uuid.UUID) *Reply {
	return &Reply{
		Reply:   fmt.Sprintf("I couldn't find any report with ID %s. Please check the ID and try again.", id),
		Actions: []Action{},
	}
}

func humanize(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}

func nonNil(a []Action) []Action {
	if a == nil {
		return []Action{}
	}
	return a
}
