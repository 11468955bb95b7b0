package main

import (
	"context"
	"errors"
	"log"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/reports"
	"github.com/fdg312/cityfix/internal/storage"
	"github.com/fdg312/cityfix/internal/storage/backend"
)

// demoReport is one predefined civic issue in a major Indian city.
type demoReport struct {
	city       string
	typ        string
	place      string
	address    string
	lat, lng   float64
	status     string
	emergency  bool
	priority   string
	confidence float64
}

var demoReports = []demoReport{
	{"Delhi", reports.TypePothole, "Connaught Place", "Connaught Place, New Delhi, Delhi 110001", 28.6304, 77.2177, storage.StatusPending, false, storage.PriorityHigh, 0.95},
	{"Mumbai", reports.TypeWaterLeak, "Bandra", "Bandra West, Mumbai, Maharashtra 400050", 19.0596, 72.8295, storage.StatusInvestigating, false, storage.PriorityMedium, 0.88},
	{"Bengaluru", reports.TypeStreetLight, "Koramangala", "Koramangala, Bengaluru, Karnataka 560034", 12.9352, 77.6245, storage.StatusInProgress, false, storage.PriorityLow, 0.92},
	{"Chennai", reports.TypeTrash, "T. Nagar", "T. Nagar, Chennai, Tamil Nadu 600017", 13.0418, 80.2341, storage.StatusPending, false, storage.PriorityMedium, 0.81},
	{"Kolkata", reports.TypeTrafficLight, "Park Street", "Park Street, Kolkata, West Bengal 700016", 22.5526, 88.3520, storage.StatusResolved, false, storage.PriorityHigh, 0.9},
	{"Hyderabad", reports.TypeEmergency, "Banjara Hills", "Road No. 12, Banjara Hills, Hyderabad, Telangana 500034", 17.4156, 78.4347, storage.StatusPending, true, storage.PriorityHigh, 0.97},
	{"Pune", reports.TypeSidewalk, "FC Road", "Fergusson College Road, Pune, Maharashtra 411004", 18.5236, 73.8412, storage.StatusPending, false, storage.PriorityMedium, 0.76},
	{"Jaipur", reports.TypeGraffiti, "MI Road", "Mirza Ismail Road, Jaipur, Rajasthan 302001", 26.9157, 75.8066, storage.StatusPending, false, storage.PriorityLow, 0.84},
}

func description(typ, place string) string {
	switch typ {
	case reports.TypePothole:
		return "Large pothole on the road near " + place + " causing traffic delays and potential damage to vehicles."
	case reports.TypeWaterLeak:
		return "Water pipe leakage at " + place + " resulting in water wastage and road damage."
	case reports.TypeStreetLight:
		return "Street light not working at " + place + " causing safety concerns for residents in the evening."
	case reports.TypeGraffiti:
		return "Unauthorized graffiti on public wall at " + place + " affecting the area's appearance."
	case reports.TypeTrash:
		return "Overflowing garbage bins at " + place + " creating unsanitary conditions and foul smell."
	case reports.TypeSidewalk:
		return "Broken sidewalk pavement at " + place + " posing risk to pedestrians, especially elderly."
	case reports.TypeTrafficLight:
		return "Malfunctioning traffic signal at " + place + " junction causing traffic congestion."
	case reports.TypeEmergency:
		return "Urgent issue at " + place + " requiring immediate attention from authorities."
	default:
		return "Civic issue reported at " + place + " requiring municipal attention."
	}
}

func (d demoReport) request() reports.CreateReportRequest {
	typ, priority := d.typ, d.priority
	analysis := "Detected a " + d.typ + " issue with " + d.priority + " priority."
	address := d.address
	userID := "seed-" + d.city

	return reports.CreateReportRequest{
		Type:        d.typ,
		Description: description(d.typ, d.place),
		Location:    reports.LocationDTO{Latitude: d.lat, Longitude: d.lng, Address: &address},
		Emergency:   d.emergency,
		UserID:      &userID,
		AIAnalysis: &reports.AIAnalysisDTO{
			SuggestedType:     &typ,
			SuggestedPriority: &priority,
			Confidence:        d.confidence,
			Description:       &analysis,
		},
	}
}

// Loads demo reports through the lifecycle manager. Re-running is safe: the
// dedup check rejects reports that already exist at the same spot.
func main() {
	cfg := config.Load()
	// Seeding must not page the on-call inbox about the demo emergency.
	cfg.EmergencyNotifyEmail = ""

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, mode, err := backend.Open(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("FATAL seed: %v", err)
	}
	defer st.Close()

	if mode == config.StorageModeMemory {
		log.Println("WARN seed: storage is in-memory, seeded reports vanish when this process exits")
	}

	manager := reports.NewService(st, nil, nil, cfg)

	var created, skipped int
	for _, d := range demoReports {
		r, err := manager.Create(ctx, d.request())
		var dup *reports.DuplicateReportError
		if errors.As(err, &dup) {
			log.Printf("seed: skip city=%s type=%s existing=%s", d.city, d.typ, dup.ExistingID)
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("FATAL seed: city=%s: %v", d.city, err)
		}

		if d.status != storage.StatusPending {
			if _, err := manager.UpdateStatus(ctx, r.ID, d.status); err != nil {
				log.Fatalf("FATAL seed: city=%s status=%s: %v", d.city, d.status, err)
			}
		}
		log.Printf("seed: created city=%s type=%s id=%s status=%s", d.city, d.typ, r.ID, d.status)
		created++
	}

	total, err := manager.Count(ctx)
	if err != nil {
		log.Fatalf("FATAL seed: count: %v", err)
	}
	log.Printf("seed: done created=%d skipped=%d total=%d storage=%s", created, skipped, total, mode)
}
