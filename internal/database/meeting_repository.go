package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const meetingColumns = `
	id, client_id, business_id, assigned_to, status, meeting_type, scheduled_time, end_time,
	meeting_link, source, source_id, attendee_email, attendee_phone, created_at, updated_at`

// MeetingRepository handles meeting database operations
type MeetingRepository struct {
	db sqlx.ExtContext
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db sqlx.ExtContext) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a meeting. It returns false without writing when another
// meeting already carries the same source id.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) (bool, error) {
	if meeting.ID == uuid.Nil {
		meeting.ID = uuid.New()
	}
	if meeting.Source == "" {
		meeting.Source = models.DefaultMeetingSource
	}
	now := time.Now()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	query := `
		INSERT INTO meetings (
			id, client_id, business_id, assigned_to, status, meeting_type, scheduled_time,
			end_time, meeting_link, source, source_id, attendee_email, attendee_phone,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source_id) WHERE source_id IS NOT NULL DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := sqlx.GetContext(ctx, r.db, &id, query,
		meeting.ID,
		meeting.ClientID,
		meeting.BusinessID,
		meeting.AssignedTo,
		meeting.Status,
		meeting.MeetingType,
		meeting.ScheduledTime,
		meeting.EndTime,
		meeting.MeetingLink,
		meeting.Source,
		meeting.SourceID,
		meeting.AttendeeEmail,
		meeting.AttendeePhone,
		meeting.CreatedAt,
		meeting.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create meeting: %w", err)
	}

	return true, nil
}

// Schedule fills a pending-schedule meeting with the booked appointment.
// It returns false when the source id is already taken by another meeting or
// the meeting is no longer pending.
func (r *MeetingRepository) Schedule(ctx context.Context, meeting *models.Meeting) (bool, error) {
	if meeting.Status == "" {
		meeting.Status = models.MeetingStatusScheduled
	}

	query := `
		UPDATE meetings
		SET status = $2, assigned_to = $3, scheduled_time = $4, end_time = $5,
			meeting_link = $6, source = $7, source_id = $8, attendee_email = $9,
			attendee_phone = $10, client_id = COALESCE(client_id, $11), updated_at = NOW()
		WHERE id = $1 AND status = $12
	`

	result, err := r.db.ExecContext(ctx, query,
		meeting.ID,
		meeting.Status,
		meeting.AssignedTo,
		meeting.ScheduledTime,
		meeting.EndTime,
		meeting.MeetingLink,
		meeting.Source,
		meeting.SourceID,
		meeting.AttendeeEmail,
		meeting.AttendeePhone,
		meeting.ClientID,
		models.MeetingStatusPendingSchedule,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to schedule meeting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetByID retrieves a meeting by ID
func (r *MeetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	return r.getOne(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
}

// GetBySourceID retrieves the meeting created from an external appointment
func (r *MeetingRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Meeting, error) {
	return r.getOne(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE source_id = $1`, sourceID)
}

// FindPendingSchedule returns the oldest pending-schedule meeting of a type for a business
func (r *MeetingRepository) FindPendingSchedule(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE business_id = $1 AND meeting_type = $2 AND status = $3
		ORDER BY created_at ASC
		LIMIT 1`
	return r.getOne(ctx, query, businessID, meetingType, models.MeetingStatusPendingSchedule)
}

// FindByBusinessAndType returns the newest meeting of a type for a business, in any status
func (r *MeetingRepository) FindByBusinessAndType(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE business_id = $1 AND meeting_type = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, businessID, meetingType)
}

// LatestByClient returns the newest meeting of a type booked by a client,
// optionally narrowed to one business
func (r *MeetingRepository) LatestByClient(ctx context.Context, clientID uuid.UUID, businessID *uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE client_id = $1 AND meeting_type = $2 AND ($3::uuid IS NULL OR business_id = $3)
		ORDER BY created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, clientID, meetingType, businessID)
}

// ListUnassigned returns meetings that could not be linked to a client
func (r *MeetingRepository) ListUnassigned(ctx context.Context) ([]*models.Meeting, error) {
	meetings := []*models.Meeting{}
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE client_id IS NULL ORDER BY created_at DESC`

	if err := sqlx.SelectContext(ctx, r.db, &meetings, query); err != nil {
		return nil, fmt.Errorf("failed to list unassigned meetings: %w", err)
	}
	return meetings, nil
}

// ListByClient returns every meeting of a client, newest first
func (r *MeetingRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Meeting, error) {
	meetings := []*models.Meeting{}
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE client_id = $1 ORDER BY created_at DESC`

	if err := sqlx.SelectContext(ctx, r.db, &meetings, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to list client meetings: %w", err)
	}
	return meetings, nil
}

// Assign links an unassigned meeting to a client. It returns false when the
// meeting already has a client.
func (r *MeetingRepository) Assign(ctx context.Context, id, clientID uuid.UUID, businessID *uuid.UUID) (bool, error) {
	query := `
		UPDATE meetings
		SET client_id = $2, business_id = COALESCE($3, business_id), updated_at = NOW()
		WHERE id = $1 AND client_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, clientID, businessID)
	if err != nil {
		return false, fmt.Errorf("failed to assign meeting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

// UpdateStatus sets the lifecycle status of a meeting
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error {
	query := `UPDATE meetings SET status = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	return nil
}

// Delete removes a meeting
func (r *MeetingRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete meeting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *MeetingRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := sqlx.GetContext(ctx, r.db, &meeting, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &meeting, nil
}
