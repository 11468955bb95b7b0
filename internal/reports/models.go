package reports

import (
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
)

// Типы проблем
const (
	TypePothole      = "pothole"
	TypeWaterLeak    = "water_leak"
	TypeStreetLight  = "street_light"
	TypeGraffiti     = "graffiti"
	TypeTrash        = "trash"
	TypeSidewalk     = "sidewalk"
	TypeTrafficLight = "traffic_light"
	TypeEmergency    = "emergency"
	TypeOther        = "other"
)

// Types lists every report type in display order.
var Types = []string{
	TypePothole, TypeWaterLeak, TypeStreetLight, TypeGraffiti, TypeTrash,
	TypeSidewalk, TypeTrafficLight, TypeEmergency, TypeOther,
}

// Statuses lists the lifecycle states in their suggested progression.
var Statuses = []string{
	storage.StatusPending, storage.StatusInvestigating, storage.StatusInProgress, storage.StatusResolved,
}

// Priorities lists priorities from most to least urgent.
var Priorities = []string{storage.PriorityHigh, storage.PriorityMedium, storage.PriorityLow}

func IsValidType(v string) bool     { return contains(Types, v) }
func IsValidStatus(v string) bool   { return contains(Statuses, v) }
func IsValidPriority(v string) bool { return contains(Priorities, v) }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// LocationDTO is a point on the map with an optional street address.
type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

// AIAnalysisDTO is the classifier's advisory annotation.
type AIAnalysisDTO struct {
	SuggestedType     *string `json:"suggested_type,omitempty"`
	SuggestedPriority *string `json:"suggested_priority,omitempty"`
	Confidence        float64 `json:"confidence"`
	Description       *string `json:"description,omitempty"`
}

// CreateReportRequest is the submission form
type CreateReportRequest struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Location    LocationDTO    `json:"location"`
	Images      []string       `json:"images"`
	Emergency   bool           `json:"emergency"`
	AIAnalysis  *AIAnalysisDTO `json:"ai_analysis,omitempty"`
	// UserID comes from the authenticated request context, never the body.
	UserID *string `json:"-"`
}

// UpdateStatusRequest is the body of PATCH /v1/reports/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Filter is a conjunction of optional criteria. Nil fields match everything.
type Filter struct {
	Status   *string
	Priority *string
	Type     *string
}

// ReportDTO is the response representation of a report
type ReportDTO struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Location    LocationDTO    `json:"location"`
	Images      []string       `json:"images"`
	Priority    string         `json:"priority"`
	Status      string         `json:"status"`
	Emergency   bool           `json:"emergency"`
	AIAnalysis  *AIAnalysisDTO `json:"ai_analysis,omitempty"`
	UserID      *string        `json:"user_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ReportsResponse is the list response
type ReportsResponse struct {
	Reports []ReportDTO `json:"reports"`
}

func toDTO(r *storage.Report) ReportDTO {
	c := r.Clone()
	images := c.Images
	if images == nil {
		images = []string{}
	}

	dto := ReportDTO{
		ID:          c.ID,
		Type:        c.Type,
		Description: c.Description,
		Location: LocationDTO{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Address:   c.Address,
		},
		Images:    images,
		Priority:  c.Priority,
		Status:    c.Status,
		Emergency: c.Emergency,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.AIAnalysis != nil {
		dto.AIAnalysis = &AIAnalysisDTO{
			SuggestedType:     c.AIAnalysis.SuggestedType,
			SuggestedPriority: c.AIAnalysis.SuggestedPriority,
			Confidence:        c.AIAnalysis.Confidence,
			Description:       c.AIAnalysis.Description,
		}
	}
	return dto
}

func toDTOs(rs []storage.Report) []ReportDTO {
	out := make([]ReportDTO, len(rs))
	for i := range rs {
		out[i] = toDTO(&rs[i])
	}
	return out
}
