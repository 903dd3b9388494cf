package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus is the lifecycle state of a meeting
type MeetingStatus string

const (
	MeetingStatusScheduled       MeetingStatus = "scheduled"
	MeetingStatusCompleted       MeetingStatus = "completed"
	MeetingStatusCancelled       MeetingStatus = "cancelled"
	MeetingStatusNoShow          MeetingStatus = "no-show"
	MeetingStatusPendingSchedule MeetingStatus = "pending-schedule"
)

// IsValid reports whether the status is a known value
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusCompleted, MeetingStatusCancelled,
		MeetingStatusNoShow, MeetingStatusPendingSchedule:
		return true
	}
	return false
}

// MeetingType identifies which expert session a meeting is
type MeetingType string

const (
	MeetingTypePortfolioAccess MeetingType = "portfolio-access"
	MeetingTypeDataStrategy    MeetingType = "data-strategy"
	MeetingTypeFollowUp        MeetingType = "follow-up"
)

// IsValid reports whether the meeting type is a known value
func (t MeetingType) IsValid() bool {
	return t == MeetingTypePortfolioAccess || t == MeetingTypeDataStrategy || t == MeetingTypeFollowUp
}

// DefaultMeetingSource is the calendar provider appointments come from
const DefaultMeetingSource = "GoHighLevel"

// Meeting is an expert session, possibly not yet linked to a client.
// SourceID is the external appointment id and is unique when present.
type Meeting struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ClientID      *uuid.UUID    `json:"client,omitempty" db:"client_id"`
	BusinessID    *uuid.UUID    `json:"business,omitempty" db:"business_id"`
	AssignedTo    string        `json:"assignedTo" db:"assigned_to"`
	Status        MeetingStatus `json:"status" db:"status"`
	MeetingType   MeetingType   `json:"meetingType" db:"meeting_type"`
	ScheduledTime *time.Time    `json:"scheduledTime,omitempty" db:"scheduled_time"`
	EndTime       *time.Time    `json:"endTime,omitempty" db:"end_time"`
	MeetingLink   *string       `json:"meetingLink,omitempty" db:"meeting_link"`
	Source        string        `json:"source" db:"source"`
	SourceID      *string       `json:"sourceId,omitempty" db:"source_id"`
	AttendeeEmail *string       `json:"attendeeEmail,omitempty" db:"attendee_email"`
	AttendeePhone *string       `json:"attendeePhone,omitempty" db:"attendee_phone"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// IsAssigned reports whether the meeting is already linked to a client
func (m *Meeting) IsAssigned() bool {
	return m.ClientID != nil && *m.ClientID != uuid.Nil
}

// AppointmentCalendar is the calendar block of an appointment webhook
type AppointmentCalendar struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointmentId"`
	CalendarName  string `json:"calendarName"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Address       string `json:"address"`
	Status        string `json:"appoinmentStatus"`
}

// AppointmentWebhook is the booking notification posted by the calendar provider
type AppointmentWebhook struct {
	Email    string              `json:"email"`
	Phone    string              `json:"phone"`
	FullName string              `json:"full_name"`
	Calendar AppointmentCalendar `json:"calendar"`
}

// MeetingAssignment is the body of the manual assignment operation
type MeetingAssignment struct {
	ClientID   string `json:"clientId" binding:"required"`
	BusinessID string `json:"businessId"`
}

// MeetingStatusSummary reports the portfolio-access state of a client
type MeetingStatusSummary struct {
	HasMeeting    bool          `json:"hasMeeting"`
	Status        MeetingStatus `json:"status,omitempty"`
	MeetingID     *uuid.UUID    `json:"meetingId,omitempty"`
	ScheduledTime *time.Time    `json:"scheduledTime,omitempty"`
	AssignedTo    string        `json:"assignedTo,omitempty"`
}
