package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/reports"
)

// EmergencyNotifier emails the on-call address about every new emergency
// report. It implements reports.Notifier.
type EmergencyNotifier struct {
	sender Sender
	to     string
}

func NewEmergencyNotifier(sender Sender, to string) *EmergencyNotifier {
	return &EmergencyNotifier{sender: sender, to: to}
}

func (n *EmergencyNotifier) NotifyEmergency(ctx context.Context, report reports.ReportDTO) error {
	subject := fmt.Sprintf("[CityFix] EMERGENCY %s reported", strings.ReplaceAll(report.Type, "_", " "))
	if err := n.sender.Send(ctx, n.to, subject, emergencyBody(report)); err != nil {
		return fmt.Errorf("notify emergency %s: %w", report.ID, err)
	}
	return nil
}

func emergencyBody(r reports.ReportDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "An emergency report was submitted and needs immediate attention.\n\n")
	fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	fmt.Fprintf(&b, "Type: %s\n", r.Type)
	fmt.Fprintf(&b, "Priority: %s\n", r.Priority)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	if r.Location.Address != nil && *r.Location.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", *r.Location.Address)
	}
	fmt.Fprintf(&b, "Location: %.6f, %.6f\n", r.Location.Latitude, r.Location.Longitude)
	fmt.Fprintf(&b, "Map: https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=18/%.6f/%.6f\n",
		r.Location.Latitude, r.Location.Longitude, r.Location.Latitude, r.Location.Longitude)
	fmt.Fprintf(&b, "Reported at: %s\n", r.CreatedAt.UTC().Format(time.RFC3339))
	return b.String()
}
