package services

import (
	"context"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/catalog"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChecklistService drives the onboarding checklist of each business
type ChecklistService struct {
	stores    Stores
	tx        Transactor
	templates *catalog.Templates
	logger    *logrus.Logger
	now       func() time.Time
}

// NewChecklistService creates a new checklist service
func NewChecklistService(stores Stores, tx Transactor, templates *catalog.Templates, logger *logrus.Logger) *ChecklistService {
	return &ChecklistService{
		stores:    stores,
		tx:        tx,
		templates: templates,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns the checklist of a business, creating it from the current
// template on first access and migrating it when the template moved on
func (s *ChecklistService) Get(ctx context.Context, businessID string) (*models.Checklist, error) {
	id, err := s.requireBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	checklist, err := s.stores.Checklists.GetByBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	if checklist == nil {
		current := s.templates.Current()
		checklist = &models.Checklist{
			BusinessID:      id,
			TemplateVersion: current.Version,
			CurrentPhase:    0,
			Phases:          current.Build(),
		}
		created, err := s.stores.Checklists.Create(ctx, checklist)
		if err != nil {
			return nil, err
		}
		if created {
			s.logger.WithFields(logrus.Fields{
				"business_id": id,
				"version":     current.Version,
			}).Info("Checklist created")
			return checklist, nil
		}
		// another request created it first
		if checklist, err = s.stores.Checklists.GetByBusiness(ctx, id); err != nil {
			return nil, err
		}
	}

	if checklist.TemplateVersion < s.templates.Current().Version {
		return s.mutate(ctx, id, func(st Stores, cl *models.Checklist) error { return nil })
	}
	return checklist, nil
}

// SetItem marks an item complete or incomplete. Completing the last open item
// of the active phase advances the checklist.
func (s *ChecklistService) SetItem(ctx context.Context, businessID, phaseID, itemID string, update models.ChecklistItemUpdate) (*models.Checklist, error) {
	if update.Completed == nil {
		return nil, NewValidationError("The completed field is required.")
	}
	if _, err := s.Get(ctx, businessID); err != nil {
		return nil, err
	}
	id := uuid.MustParse(strings.TrimSpace(businessID))

	return s.mutate(ctx, id, func(st Stores, cl *models.Checklist) error {
		phaseIndex := cl.PhaseIndex(phaseID)
		if phaseIndex < 0 {
			return ErrPhaseNotFound
		}
		phase := &cl.Phases[phaseIndex]

		itemIndex := -1
		for i := range phase.Items {
			if phase.Items[i].ID == itemID {
				itemIndex = i
				break
			}
		}
		if itemIndex < 0 {
			return ErrItemNotFound
		}

		now := s.now()
		item := &phase.Items[itemIndex]
		item.Completed = *update.Completed
		if item.Completed {
			item.CompletedAt = &now
			item.CompletedBy = optionalString(update.CompletedBy)
		} else {
			item.CompletedAt = nil
			item.CompletedBy = nil
		}

		newlyCompleted := recomputePhase(phase, now)
		if newlyCompleted && phaseIndex == cl.CurrentPhase && cl.CurrentPhase < len(cl.Phases)-1 {
			return s.advance(ctx, st, cl)
		}
		return nil
	})
}

// NextPhase advances the checklist once its active phase is complete
func (s *ChecklistService) NextPhase(ctx context.Context, businessID string) (*models.Checklist, error) {
	if _, err := s.Get(ctx, businessID); err != nil {
		return nil, err
	}
	id := uuid.MustParse(strings.TrimSpace(businessID))

	return s.mutate(ctx, id, func(st Stores, cl *models.Checklist) error {
		if cl.CurrentPhase < 0 || cl.CurrentPhase >= len(cl.Phases) || !cl.Phases[cl.CurrentPhase].Completed {
			return ErrPhaseIncomplete
		}
		if cl.CurrentPhase >= len(cl.Phases)-1 {
			return ErrLastPhase
		}
		return s.advance(ctx, st, cl)
	})
}

// Progress returns the aggregate progress of the checklist of a business
func (s *ChecklistService) Progress(ctx context.Context, businessID string) (*models.ChecklistProgress, error) {
	checklist, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	progress := checklist.Progress()
	return &progress, nil
}

// UpdateObservations replaces the free-text observations of a phase
func (s *ChecklistService) UpdateObservations(ctx context.Context, businessID, phaseID string, update models.ChecklistObservationsUpdate) (*models.Checklist, error) {
	if _, err := s.Get(ctx, businessID); err != nil {
		return nil, err
	}
	id := uuid.MustParse(strings.TrimSpace(businessID))

	return s.mutate(ctx, id, func(st Stores, cl *models.Checklist) error {
		phaseIndex := cl.PhaseIndex(phaseID)
		if phaseIndex < 0 {
			return ErrPhaseNotFound
		}
		now := s.now()
		phase := &cl.Phases[phaseIndex]
		phase.Observations = update.Observations
		phase.ObservationsBy = optionalString(update.UpdatedBy)
		phase.ObservationsUpdated = &now
		return nil
	})
}

// MigrateAll rebuilds every checklist created from an older template and
// returns how many were migrated
func (s *ChecklistService) MigrateAll(ctx context.Context) (int, error) {
	current := s.templates.Current()
	outdated, err := s.stores.Checklists.ListOutdated(ctx, current.Version)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, checklist := range outdated {
		if _, err := s.mutate(ctx, checklist.BusinessID, func(st Stores, cl *models.Checklist) error { return nil }); err != nil {
			return migrated, err
		}
		migrated++
	}

	s.logger.WithFields(logrus.Fields{
		"migrated": migrated,
		"version":  current.Version,
	}).Info("Checklists migrated")
	return migrated, nil
}

// mutate loads the checklist under a row lock, brings it to the current
// template, applies fn and persists the result
func (s *ChecklistService) mutate(ctx context.Context, businessID uuid.UUID, fn func(st Stores, cl *models.Checklist) error) (*models.Checklist, error) {
	var result *models.Checklist
	err := s.tx.WithinTx(ctx, func(st Stores) error {
		checklist, err := st.Checklists.GetByBusinessForUpdate(ctx, businessID)
		if err != nil {
			return err
		}
		if checklist == nil {
			return ErrBusinessNotFound
		}

		current := s.templates.Current()
		if checklist.TemplateVersion < current.Version {
			from := checklist.TemplateVersion
			MigrateChecklist(checklist, current, s.now())
			s.logger.WithFields(logrus.Fields{
				"business_id": businessID,
				"from":        from,
				"to":          current.Version,
			}).Info("Checklist migrated to current template")
		}

		if err := fn(st, checklist); err != nil {
			return err
		}
		if err := st.Checklists.Update(ctx, checklist); err != nil {
			return err
		}
		result = checklist
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// advance moves the phase cursor forward and mirrors the new phase on the
// business onboarding step
func (s *ChecklistService) advance(ctx context.Context, st Stores, cl *models.Checklist) error {
	cl.CurrentPhase++
	phase := cl.Phases[cl.CurrentPhase]

	s.logger.WithFields(logrus.Fields{
		"business_id": cl.BusinessID,
		"phase":       phase.ID,
	}).Info("Checklist advanced to next phase")

	if phase.OnboardingStep == "" {
		return nil
	}
	return st.Businesses.SetOnboardingStep(ctx, cl.BusinessID, phase.OnboardingStep)
}

func (s *ChecklistService) requireBusiness(ctx context.Context, businessID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return uuid.Nil, ErrInvalidBusinessID
	}
	business, err := s.stores.Businesses.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if business == nil {
		return uuid.Nil, ErrBusinessNotFound
	}
	return id, nil
}

// MigrateChecklist rebuilds the phases from tmpl. Item completion survives
// only for items keeping their id inside the same phase; observations survive
// per phase; the phase cursor is clamped to the new phase count.
func MigrateChecklist(cl *models.Checklist, tmpl *catalog.ChecklistTemplate, now time.Time) {
	previous := make(map[string]models.ChecklistPhase, len(cl.Phases))
	for _, phase := range cl.Phases {
		previous[phase.ID] = phase
	}

	phases := tmpl.Build()
	for i := range phases {
		phase := &phases[i]
		old, ok := previous[phase.ID]
		if !ok {
			continue
		}

		oldItems := make(map[string]models.ChecklistItem, len(old.Items))
		for _, item := range old.Items {
			oldItems[item.ID] = item
		}
		for j := range phase.Items {
			if item, ok := oldItems[phase.Items[j].ID]; ok && item.Completed {
				phase.Items[j].Completed = true
				phase.Items[j].CompletedAt = item.CompletedAt
				phase.Items[j].CompletedBy = item.CompletedBy
			}
		}

		phase.Observations = old.Observations
		phase.ObservationsBy = old.ObservationsBy
		phase.ObservationsUpdated = old.ObservationsUpdated
		if old.Completed {
			phase.Completed = true
			phase.CompletedAt = old.CompletedAt
		}
		recomputePhase(phase, now)
	}

	cl.Phases = phases
	cl.TemplateVersion = tmpl.Version
	if cl.CurrentPhase >= len(phases) {
		cl.CurrentPhase = len(phases) - 1
	}
	if cl.CurrentPhase < 0 {
		cl.CurrentPhase = 0
	}
}

// recomputePhase syncs the phase completion flag with its items and reports
// whether the phase just became complete
func recomputePhase(phase *models.ChecklistPhase, now time.Time) bool {
	complete := phase.AllItemsCompleted()
	switch {
	case complete && !phase.Completed:
		phase.Completed = true
		phase.CompletedAt = &now
		return true
	case !complete && phase.Completed:
		phase.Completed = false
		phase.CompletedAt = nil
	}
	return false
}
