// Package catalog holds the versioned configuration the engines run on:
// onboarding checklist templates and the booking calendar allow-list.
package catalog

import (
	"embed"
	"fmt"
	"sort"

	"github.com/bakano/consultancy-backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed checklist_v*.yaml calendars.yaml
var files embed.FS

var checklistFiles = []string{"checklist_v1.yaml", "checklist_v2.yaml"}

// ItemTemplate is one deliverable of a phase template
type ItemTemplate struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// PhaseTemplate is one ordered phase of a checklist template
type PhaseTemplate struct {
	ID             string                `yaml:"id"`
	Name           string                `yaml:"name"`
	OnboardingStep models.OnboardingStep `yaml:"onboardingStep"`
	Items          []ItemTemplate        `yaml:"items"`
}

// ChecklistTemplate is a versioned checklist definition
type ChecklistTemplate struct {
	Version int             `yaml:"version"`
	Phases  []PhaseTemplate `yaml:"phases"`
}

// ParseChecklistTemplate decodes and validates a checklist template
func ParseChecklistTemplate(data []byte) (*ChecklistTemplate, error) {
	var tmpl ChecklistTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse checklist template: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Validate checks that phase ids are unique, item ids are unique within
// their phase and every phase has at least one item
func (t *ChecklistTemplate) Validate() error {
	if t.Version <= 0 {
		return fmt.Errorf("checklist template version must be positive")
	}
	if len(t.Phases) == 0 {
		return fmt.Errorf("checklist template v%d has no phases", t.Version)
	}

	phaseIDs := make(map[string]bool)
	for _, phase := range t.Phases {
		if phase.ID == "" || phase.Name == "" {
			return fmt.Errorf("checklist template v%d has a phase without id or name", t.Version)
		}
		if phaseIDs[phase.ID] {
			return fmt.Errorf("checklist template v%d repeats phase %q", t.Version, phase.ID)
		}
		phaseIDs[phase.ID] = true

		if phase.OnboardingStep != "" && !phase.OnboardingStep.IsValid() {
			return fmt.Errorf("phase %q maps to unknown onboarding step %q", phase.ID, phase.OnboardingStep)
		}
		if len(phase.Items) == 0 {
			return fmt.Errorf("phase %q has no items", phase.ID)
		}

		itemIDs := make(map[string]bool)
		for _, item := range phase.Items {
			if item.ID == "" || item.Title == "" {
				return fmt.Errorf("phase %q has an item without id or title", phase.ID)
			}
			if itemIDs[item.ID] {
				return fmt.Errorf("phase %q repeats item %q", phase.ID, item.ID)
			}
			itemIDs[item.ID] = true
		}
	}
	return nil
}

// Build returns fresh, uncompleted phases for a new checklist
func (t *ChecklistTemplate) Build() models.ChecklistPhases {
	phases := make(models.ChecklistPhases, 0, len(t.Phases))
	for _, p := range t.Phases {
		phase := models.ChecklistPhase{
			ID:             p.ID,
			Name:           p.Name,
			OnboardingStep: p.OnboardingStep,
			Items:          make([]models.ChecklistItem, 0, len(p.Items)),
		}
		for _, item := range p.Items {
			phase.Items = append(phase.Items, models.ChecklistItem{
				ID:          item.ID,
				Title:       item.Title,
				Description: item.Description,
			})
		}
		phases = append(phases, phase)
	}
	return phases
}

// Templates is the set of known checklist template versions
type Templates struct {
	byVersion map[int]*ChecklistTemplate
	current   *ChecklistTemplate
}

// NewTemplates indexes templates by version. The highest version is current.
func NewTemplates(templates ...*ChecklistTemplate) (*Templates, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("no checklist templates")
	}

	set := &Templates{byVersion: make(map[int]*ChecklistTemplate)}
	for _, tmpl := range templates {
		if _, exists := set.byVersion[tmpl.Version]; exists {
			return nil, fmt.Errorf("checklist template v%d defined twice", tmpl.Version)
		}
		set.byVersion[tmpl.Version] = tmpl
		if set.current == nil || tmpl.Version > set.current.Version {
			set.current = tmpl
		}
	}
	return set, nil
}

// LoadTemplates parses the embedded checklist templates
func LoadTemplates() (*Templates, error) {
	templates := make([]*ChecklistTemplate, 0, len(checklistFiles))
	for _, name := range checklistFiles {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		tmpl, err := ParseChecklistTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		templates = append(templates, tmpl)
	}
	return NewTemplates(templates...)
}

// Current returns the template new checklists are built from
func (t *Templates) Current() *ChecklistTemplate {
	return t.current
}

// Version returns the template of a given version
func (t *Templates) Version(version int) (*ChecklistTemplate, bool) {
	tmpl, ok := t.byVersion[version]
	return tmpl, ok
}

// Versions lists the known versions in ascending order
func (t *Templates) Versions() []int {
	versions := make([]int, 0, len(t.byVersion))
	for v := range t.byVersion {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}
