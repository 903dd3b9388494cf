package catalog

import (
	"testing"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, templates.Versions())
	assert.Equal(t, 2, templates.Current().Version)

	v1, ok := templates.Version(1)
	require.True(t, ok)
	assert.Len(t, v1.Phases, 5)

	current := templates.Current()
	require.Len(t, current.Phases, 6)
	assert.Equal(t, "venta", current.Phases[5].ID)
	assert.Equal(t, models.OnboardingStepOnBoarding, current.Phases[0].OnboardingStep)
	assert.Empty(t, current.Phases[5].OnboardingStep)

	_, ok = templates.Version(9)
	assert.False(t, ok)
}

func TestChecklistTemplateBuild(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	phases := templates.Current().Build()
	require.Len(t, phases, 6)
	for _, phase := range phases {
		assert.False(t, phase.Completed)
		assert.NotEmpty(t, phase.Items)
		for _, item := range phase.Items {
			assert.False(t, item.Completed)
			assert.Nil(t, item.CompletedAt)
		}
	}
	assert.Equal(t, "Configuración META (primera reunión)", phases[1].Items[0].Title)
}

func TestParseChecklistTemplate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: "version: 3\nphases:\n  - id: a\n    name: A\n    items:\n      - id: x\n        title: X\n",
		},
		{
			name:    "missing version",
			yaml:    "phases:\n  - id: a\n    name: A\n    items:\n      - id: x\n        title: X\n",
			wantErr: "version must be positive",
		},
		{
			name:    "repeated phase",
			yaml:    "version: 3\nphases:\n  - id: a\n    name: A\n    items:\n      - id: x\n        title: X\n  - id: a\n    name: B\n    items:\n      - id: y\n        title: Y\n",
			wantErr: "repeats phase",
		},
		{
			name:    "repeated item",
			yaml:    "version: 3\nphases:\n  - id: a\n    name: A\n    items:\n      - id: x\n        title: X\n      - id: x\n        title: Y\n",
			wantErr: "repeats item",
		},
		{
			name:    "empty phase",
			yaml:    "version: 3\nphases:\n  - id: a\n    name: A\n",
			wantErr: "has no items",
		},
		{
			name:    "unknown step",
			yaml:    "version: 3\nphases:\n  - id: a\n    name: A\n    onboardingStep: NOPE\n    items:\n      - id: x\n        title: X\n",
			wantErr: "unknown onboarding step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseChecklistTemplate([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, tmpl.Version)
		})
	}
}

func TestNewTemplatesRejectsDuplicateVersions(t *testing.T) {
	tmpl := &ChecklistTemplate{Version: 1}
	_, err := NewTemplates(tmpl, tmpl)
	assert.Error(t, err)

	_, err = NewTemplates()
	assert.Error(t, err)
}

func TestCalendars(t *testing.T) {
	calendars, err := LoadCalendars()
	require.NoError(t, err)

	route, ok := calendars.Lookup("  acceso a   PORTAFOLIO ")
	require.True(t, ok)
	assert.Equal(t, "Denisse", route.Expert)
	assert.Equal(t, models.MeetingTypePortfolioAccess, route.MeetingType)

	route, ok = calendars.Lookup("Estrategia de Datos")
	require.True(t, ok)
	assert.Equal(t, "Luis", route.Expert)
	assert.Equal(t, models.MeetingTypeDataStrategy, route.MeetingType)

	_, ok = calendars.Lookup("Llamada de ventas")
	assert.False(t, ok)
}

func TestParseCalendarsValidation(t *testing.T) {
	_, err := ParseCalendars([]byte("calendars:\n  - name: X\n    expert: Y\n    meetingType: coffee\n"))
	assert.Error(t, err)

	_, err = ParseCalendars([]byte("calendars:\n  - name: X\n    expert: Y\n    meetingType: follow-up\n  - name: x\n    expert: Z\n    meetingType: follow-up\n"))
	assert.Error(t, err)
}

func TestCalendarsExpertFor(t *testing.T) {
	calendars, err := LoadCalendars()
	require.NoError(t, err)

	expert, ok := calendars.ExpertFor(models.MeetingTypeDataStrategy)
	require.True(t, ok)
	assert.Equal(t, "Luis", expert)

	_, ok = calendars.ExpertFor(models.MeetingTypeFollowUp)
	assert.False(t, ok)
}
