package services

import (
	"context"
	"strings"
	"time"

	"github.com/bakano/consultancy-backend/internal/catalog"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppointmentOutcome tells what an appointment webhook did
type AppointmentOutcome string

const (
	AppointmentCreated   AppointmentOutcome = "created"
	AppointmentScheduled AppointmentOutcome = "scheduled"
	AppointmentDuplicate AppointmentOutcome = "duplicate"
	AppointmentIgnored   AppointmentOutcome = "ignored"
)

// AppointmentResult is the answer returned to the calendar provider
type AppointmentResult struct {
	Outcome AppointmentOutcome `json:"outcome"`
	Message string             `json:"message"`
	Meeting *models.Meeting    `json:"meeting,omitempty"`
}

var appointmentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// MeetingService ingests booked appointments and manages meeting assignment
type MeetingService struct {
	stores    Stores
	tx        Transactor
	calendars *catalog.Calendars
	logger    *logrus.Logger
	now       func() time.Time
}

// NewMeetingService creates a new meeting service
func NewMeetingService(stores Stores, tx Transactor, calendars *catalog.Calendars, logger *logrus.Logger) *MeetingService {
	return &MeetingService{
		stores:    stores,
		tx:        tx,
		calendars: calendars,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleAppointment records a booked appointment, linking it to a client and
// business when they can be resolved without ambiguity
func (s *MeetingService) HandleAppointment(ctx context.Context, payload *models.AppointmentWebhook) (*AppointmentResult, error) {
	sourceID := strings.TrimSpace(payload.Calendar.AppointmentID)
	log := s.logger.WithFields(logrus.Fields{
		"appointment_id": sourceID,
		"calendar":       payload.Calendar.CalendarName,
		"email":          payload.Email,
	})

	if sourceID == "" {
		log.Info("Appointment ignored: no appointment id")
		return &AppointmentResult{Outcome: AppointmentIgnored, Message: "Appointment ignored: missing appointment id."}, nil
	}

	existing, err := s.stores.Meetings.GetBySourceID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AppointmentResult{Outcome: AppointmentDuplicate, Message: "Appointment already registered.", Meeting: existing}, nil
	}

	route, ok := s.calendars.Lookup(payload.Calendar.CalendarName)
	if !ok {
		log.Info("Appointment ignored: calendar not tracked")
		return &AppointmentResult{
			Outcome: AppointmentIgnored,
			Message: "Appointment ignored: calendar '" + payload.Calendar.CalendarName + "' is not tracked.",
		}, nil
	}

	client, business, err := s.resolveAttendee(ctx, payload.Email, payload.Phone)
	if err != nil {
		return nil, err
	}

	meeting := &models.Meeting{
		AssignedTo:    route.Expert,
		Status:        appointmentStatus(payload.Calendar.Status),
		MeetingType:   route.MeetingType,
		ScheduledTime: parseAppointmentTime(payload.Calendar.StartTime),
		EndTime:       parseAppointmentTime(payload.Calendar.EndTime),
		MeetingLink:   optionalString(payload.Calendar.Address),
		Source:        models.DefaultMeetingSource,
		SourceID:      &sourceID,
		AttendeeEmail: optionalString(payload.Email),
		AttendeePhone: optionalString(payload.Phone),
	}
	if client != nil {
		meeting.ClientID = &client.ID
	}
	if business != nil {
		meeting.BusinessID = &business.ID

		pending, err := s.stores.Meetings.FindPendingSchedule(ctx, business.ID, route.MeetingType)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			meeting.ID = pending.ID
			meeting.CreatedAt = pending.CreatedAt
			scheduled, err := s.stores.Meetings.Schedule(ctx, meeting)
			if err != nil {
				return nil, err
			}
			if scheduled {
				log.WithField("meeting_id", meeting.ID).Info("Pending meeting scheduled from appointment")
				return &AppointmentResult{Outcome: AppointmentScheduled, Message: "Pending meeting scheduled.", Meeting: meeting}, nil
			}
			// taken source id or a pending meeting scheduled meanwhile; Create sorts out which
			meeting.ID = uuid.Nil
			meeting.CreatedAt = time.Time{}
		}
	}

	created, err := s.stores.Meetings.Create(ctx, meeting)
	if err != nil {
		return nil, err
	}
	if !created {
		return &AppointmentResult{Outcome: AppointmentDuplicate, Message: "Appointment already registered."}, nil
	}

	log.WithFields(logrus.Fields{
		"meeting_id": meeting.ID,
		"assigned":   meeting.IsAssigned(),
		"business":   meeting.BusinessID != nil,
	}).Info("Meeting created from appointment")
	return &AppointmentResult{Outcome: AppointmentCreated, Message: "Meeting created.", Meeting: meeting}, nil
}

// resolveAttendee matches the attendee to a client by email, then by phone
// suffix, then through a unique business listing the email as a manager
func (s *MeetingService) resolveAttendee(ctx context.Context, email, phone string) (*models.Client, *models.Business, error) {
	email = strings.TrimSpace(email)

	var client *models.Client
	var err error
	if email != "" {
		if client, err = s.stores.Clients.FindByEmail(ctx, email); err != nil {
			return nil, nil, err
		}
	}
	if client == nil {
		if suffix := validator.MatchSuffix(phone); suffix != "" {
			if client, err = s.stores.Clients.FindByPhoneSuffix(ctx, suffix); err != nil {
				return nil, nil, err
			}
		}
	}

	var business *models.Business
	if client == nil && email != "" {
		businesses, err := s.stores.Businesses.FindByManagerEmail(ctx, email)
		if err != nil {
			return nil, nil, err
		}
		if len(businesses) == 1 {
			business = businesses[0]
			if client, err = s.stores.Clients.GetByID(ctx, business.OwnerID); err != nil {
				return nil, nil, err
			}
		}
	}

	if client != nil && business == nil {
		owned, err := s.stores.Businesses.ListByOwner(ctx, client.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(owned) == 1 {
			business = owned[0]
		}
	}
	return client, business, nil
}

// AssignMeeting links an unassigned meeting to a client and, when it can be
// decided, to one of the client's businesses
func (s *MeetingService) AssignMeeting(ctx context.Context, meetingID string, req models.MeetingAssignment) (*models.Meeting, error) {
	id, err := uuid.Parse(meetingID)
	if err != nil {
		return nil, ErrInvalidMeetingID
	}
	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		return nil, ErrInvalidClientID
	}
	var businessID *uuid.UUID
	if strings.TrimSpace(req.BusinessID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(req.BusinessID))
		if err != nil {
			return nil, ErrInvalidBusinessID
		}
		businessID = &parsed
	}

	meeting, err := s.stores.Meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}

	client, err := s.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	if meeting.IsAssigned() {
		return nil, ErrMeetingAlreadyAssigned
	}

	if businessID != nil {
		business, err := s.stores.Businesses.GetByID(ctx, *businessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		if business.OwnerID != client.ID {
			return nil, ErrBusinessNotOwned
		}
	} else {
		owned, err := s.stores.Businesses.ListByOwner(ctx, client.ID)
		if err != nil {
			return nil, err
		}
		if len(owned) == 1 {
			businessID = &owned[0].ID
		}
	}

	assigned, err := s.stores.Meetings.Assign(ctx, id, client.ID, businessID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, ErrMeetingAlreadyAssigned
	}

	s.logger.WithFields(logrus.Fields{
		"meeting_id":  id,
		"client_id":   client.ID,
		"business_id": businessID,
	}).Info("Meeting assigned to client")

	return s.stores.Meetings.GetByID(ctx, id)
}

// UpdateStatus moves a meeting to a new status and runs the completion
// follow-ups of the onboarding meetings
func (s *MeetingService) UpdateStatus(ctx context.Context, meetingID string, status models.MeetingStatus) (*models.Meeting, error) {
	id, err := uuid.Parse(meetingID)
	if err != nil {
		return nil, ErrInvalidMeetingID
	}
	if !status.IsValid() {
		return nil, NewValidationError("The status '%s' is not valid.", status)
	}

	meeting, err := s.stores.Meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}

	if err := s.transition(ctx, meeting, status); err != nil {
		return nil, err
	}
	return meeting, nil
}

// transition persists the status and, on completion, schedules the next
// onboarding meeting or closes the onboarding
func (s *MeetingService) transition(ctx context.Context, meeting *models.Meeting, status models.MeetingStatus) error {
	err := s.tx.WithinTx(ctx, func(st Stores) error {
		if err := st.Meetings.UpdateStatus(ctx, meeting.ID, status); err != nil {
			return err
		}
		if status != models.MeetingStatusCompleted || meeting.BusinessID == nil {
			return nil
		}

		switch meeting.MeetingType {
		case models.MeetingTypePortfolioAccess:
			next, err := st.Meetings.FindByBusinessAndType(ctx, *meeting.BusinessID, models.MeetingTypeDataStrategy)
			if err != nil {
				return err
			}
			if next != nil {
				return nil
			}
			expert, ok := s.calendars.ExpertFor(models.MeetingTypeDataStrategy)
			if !ok {
				s.logger.WithFields(logrus.Fields{
					"meeting_id":   meeting.ID,
					"business_id":  *meeting.BusinessID,
					"meeting_type": models.MeetingTypeDataStrategy,
				}).Warn("No calendar routes data-strategy meetings, queuing it without an expert")
			}
			_, err = st.Meetings.Create(ctx, &models.Meeting{
				ClientID:    meeting.ClientID,
				BusinessID:  meeting.BusinessID,
				AssignedTo:  expert,
				Status:      models.MeetingStatusPendingSchedule,
				MeetingType: models.MeetingTypeDataStrategy,
				Source:      models.DefaultMeetingSource,
			})
			return err
		case models.MeetingTypeDataStrategy:
			return st.Businesses.CompleteOnboarding(ctx, *meeting.BusinessID, s.now())
		}
		return nil
	})
	if err != nil {
		return err
	}

	meeting.Status = status
	s.logger.WithFields(logrus.Fields{
		"meeting_id":   meeting.ID,
		"meeting_type": meeting.MeetingType,
		"status":       status,
	}).Info("Meeting status updated")
	return nil
}

// ClientMeetingStatus reports the latest portfolio-access meeting of a client
func (s *MeetingService) ClientMeetingStatus(ctx context.Context, clientID string) (*models.MeetingStatusSummary, error) {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	meeting, err := s.stores.Meetings.LatestByClient(ctx, client.ID, nil, models.MeetingTypePortfolioAccess)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return &models.MeetingStatusSummary{HasMeeting: false}, nil
	}
	return &models.MeetingStatusSummary{
		HasMeeting:    true,
		Status:        meeting.Status,
		MeetingID:     &meeting.ID,
		ScheduledTime: meeting.ScheduledTime,
		AssignedTo:    meeting.AssignedTo,
	}, nil
}

// ConfirmStrategyMeeting completes the client's portfolio-access meeting for a
// business, which queues the data-strategy meeting
func (s *MeetingService) ConfirmStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error) {
	return s.completeLatest(ctx, clientID, businessID, models.MeetingTypePortfolioAccess)
}

// CompleteDataStrategyMeeting completes the client's data-strategy meeting for
// a business, which closes its onboarding
func (s *MeetingService) CompleteDataStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error) {
	return s.completeLatest(ctx, clientID, businessID, models.MeetingTypeDataStrategy)
}

func (s *MeetingService) completeLatest(ctx context.Context, clientID, businessID string, meetingType models.MeetingType) (*models.Meeting, error) {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	bid, err := uuid.Parse(strings.TrimSpace(businessID))
	if err != nil {
		return nil, ErrInvalidBusinessID
	}

	business, err := s.stores.Businesses.GetByID(ctx, bid)
	if err != nil {
		return nil, err
	}
	if business == nil || business.OwnerID != client.ID {
		return nil, ErrBusinessNotFound
	}

	meeting, err := s.stores.Meetings.LatestByClient(ctx, client.ID, &bid, meetingType)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}
	if meeting.Status == models.MeetingStatusCompleted {
		return meeting, nil
	}

	if err := s.transition(ctx, meeting, models.MeetingStatusCompleted); err != nil {
		return nil, err
	}
	return meeting, nil
}

// ListUnassigned returns meetings waiting for manual assignment
func (s *MeetingService) ListUnassigned(ctx context.Context) ([]*models.Meeting, error) {
	return s.stores.Meetings.ListUnassigned(ctx)
}

// ListByClient returns every meeting of a client
func (s *MeetingService) ListByClient(ctx context.Context, clientID string) ([]*models.Meeting, error) {
	client, err := s.requireClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.stores.Meetings.ListByClient(ctx, client.ID)
}

// DeleteMeeting removes a meeting
func (s *MeetingService) DeleteMeeting(ctx context.Context, meetingID string) error {
	id, err := uuid.Parse(meetingID)
	if err != nil {
		return ErrInvalidMeetingID
	}
	deleted, err := s.stores.Meetings.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMeetingNotFound
	}
	return nil
}

func (s *MeetingService) requireClient(ctx context.Context, clientID string) (*models.Client, error) {
	id, err := uuid.Parse(strings.TrimSpace(clientID))
	if err != nil {
		return nil, ErrInvalidClientID
	}
	client, err := s.stores.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// appointmentStatus maps the calendar provider status onto a meeting status
func appointmentStatus(status string) models.MeetingStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled":
		return models.MeetingStatusCancelled
	case "noshow", "no-show", "no_show":
		return models.MeetingStatusNoShow
	case "showed", "completed":
		return models.MeetingStatusCompleted
	default:
		return models.MeetingStatusScheduled
	}
}

func parseAppointmentTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range appointmentTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
