package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is one deliverable inside a phase
type ChecklistItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *string    `json:"completedBy,omitempty"`
}

// ChecklistPhase is an ordered group of items mapped to an onboarding step
type ChecklistPhase struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	OnboardingStep      OnboardingStep  `json:"onboardingStep,omitempty"`
	Items               []ChecklistItem `json:"items"`
	Completed           bool            `json:"completed"`
	CompletedAt         *time.Time      `json:"completedAt,omitempty"`
	Observations        string          `json:"observations,omitempty"`
	ObservationsBy      *string         `json:"observationsUpdatedBy,omitempty"`
	ObservationsUpdated *time.Time      `json:"observationsUpdatedAt,omitempty"`
}

// AllItemsCompleted reports whether every item of the phase is done.
// A phase without items is never complete.
func (p *ChecklistPhase) AllItemsCompleted() bool {
	if len(p.Items) == 0 {
		return false
	}
	for _, item := range p.Items {
		if !item.Completed {
			return false
		}
	}
	return true
}

// ChecklistPhases is the JSONB column holding the ordered phases
type ChecklistPhases []ChecklistPhase

// Value implements the driver.Valuer interface
func (p ChecklistPhases) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (p *ChecklistPhases) Scan(value interface{}) error {
	if value == nil {
		*p = ChecklistPhases{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported checklist phases source type %T", value)
	}
}

// Checklist tracks the onboarding progress of one business
type Checklist struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	BusinessID      uuid.UUID       `json:"businessId" db:"business_id"`
	TemplateVersion int             `json:"templateVersion" db:"template_version"`
	CurrentPhase    int             `json:"currentPhase" db:"current_phase"`
	Phases          ChecklistPhases `json:"phases" db:"phases"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// PhaseIndex returns the position of the phase with the given id, or -1
func (c *Checklist) PhaseIndex(phaseID string) int {
	for i := range c.Phases {
		if c.Phases[i].ID == phaseID {
			return i
		}
	}
	return -1
}

// ChecklistProgress is the aggregate view of a checklist
type ChecklistProgress struct {
	TotalPhases      int    `json:"totalPhases"`
	CompletedPhases  int    `json:"completedPhases"`
	CurrentPhase     int    `json:"currentPhase"`
	CurrentPhaseName string `json:"currentPhaseName"`
	TotalItems       int    `json:"totalItems"`
	CompletedItems   int    `json:"completedItems"`
	OverallProgress  int    `json:"overallProgress"`
}

// Progress computes the aggregate progress of the checklist
func (c *Checklist) Progress() ChecklistProgress {
	progress := ChecklistProgress{
		TotalPhases:  len(c.Phases),
		CurrentPhase: c.CurrentPhase,
	}
	if c.CurrentPhase >= 0 && c.CurrentPhase < len(c.Phases) {
		progress.CurrentPhaseName = c.Phases[c.CurrentPhase].Name
	}
	for _, phase := range c.Phases {
		if phase.Completed {
			progress.CompletedPhases++
		}
		for _, item := range phase.Items {
			progress.TotalItems++
			if item.Completed {
				progress.CompletedItems++
			}
		}
	}
	if progress.TotalItems > 0 {
		progress.OverallProgress = int(math.Round(float64(progress.CompletedItems) / float64(progress.TotalItems) * 100))
	}
	return progress
}

// ChecklistItemUpdate is the body of the item toggle operation
type ChecklistItemUpdate struct {
	Completed   *bool  `json:"completed" binding:"required"`
	CompletedBy string `json:"completedBy"`
}

// ChecklistObservationsUpdate is the body of the observations operation
type ChecklistObservationsUpdate struct {
	Observations string `json:"observations"`
	UpdatedBy    string `json:"updatedBy"`
}
