package services

import (
	"context"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/google/uuid"
)

// The store interfaces below are the slices of the database repositories the
// services depend on. Production wires the sqlx repositories; tests use
// in-memory fakes.

// ClientStore persists clients
type ClientStore interface {
	LockEmail(ctx context.Context, email string) error
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	FindByPhoneSuffix(ctx context.Context, suffix string) (*models.Client, error)
	SetNationalID(ctx context.Context, id uuid.UUID, nationalID string) error
	UpdatePaymentSnapshot(ctx context.Context, id uuid.UUID, snapshot models.PaymentSnapshot) error
	List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, int, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// BusinessStore persists businesses
type BusinessStore interface {
	Create(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Business, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Business, error)
	ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*models.Business, error)
	FindByManagerEmail(ctx context.Context, email string) ([]*models.Business, error)
	Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (*models.Business, error)
	SetOnboardingStep(ctx context.Context, id uuid.UUID, step models.OnboardingStep) error
	CompleteOnboarding(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListReminderTargets(ctx context.Context, createdBefore time.Time) ([]*models.ReminderTarget, error)
	BackfillBusinessType(ctx context.Context, valid []models.BusinessType, fallback models.BusinessType) (int64, error)
}

// ManagerStore persists business managers
type ManagerStore interface {
	Create(ctx context.Context, manager *models.Manager) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.Manager, error)
	Delete(ctx context.Context, businessID, managerID uuid.UUID) (bool, error)
}

// FileStore persists the uploaded intake documents
type FileStore interface {
	Upsert(ctx context.Context, file *models.BusinessFile) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.BusinessFile, error)
}

// HandoffStore persists handoffs
type HandoffStore interface {
	Create(ctx context.Context, handoff *models.Handoff) error
	GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Handoff, error)
}

// IntentStore persists payment intents
type IntentStore interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
	GetByIntentID(ctx context.Context, intentID string) (*models.PaymentIntent, error)
	ClaimPending(ctx context.Context, intentID string, paidAt time.Time) (bool, error)
	AttachResolution(ctx context.Context, intentID string, resolution models.IntentResolution) error
	List(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, int, error)
	Summary(ctx context.Context, from, to *time.Time) (*models.IntentSummary, error)
}

// TransactionStore persists the payment ledger
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Transaction, error)
	Summary(ctx context.Context, from, to *time.Time) (*models.ConfirmedPaymentsSummary, error)
}

// MeetingStore persists meetings
type MeetingStore interface {
	Create(ctx context.Context, meeting *models.Meeting) (bool, error)
	Schedule(ctx context.Context, meeting *models.Meeting) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	GetBySourceID(ctx context.Context, sourceID string) (*models.Meeting, error)
	FindPendingSchedule(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error)
	FindByBusinessAndType(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error)
	LatestByClient(ctx context.Context, clientID uuid.UUID, businessID *uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error)
	ListUnassigned(ctx context.Context) ([]*models.Meeting, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Meeting, error)
	Assign(ctx context.Context, id, clientID uuid.UUID, businessID *uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ChecklistStore persists checklists
type ChecklistStore interface {
	GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error)
	GetByBusinessForUpdate(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error)
	Create(ctx context.Context, checklist *models.Checklist) (bool, error)
	Update(ctx context.Context, checklist *models.Checklist) error
	ListOutdated(ctx context.Context, version int) ([]*models.Checklist, error)
}

// MVPAccountStore persists links to external product accounts
type MVPAccountStore interface {
	Create(ctx context.Context, account *models.MVPAccount) error
	GetByClient(ctx context.Context, clientID uuid.UUID, mvpType string) (*models.MVPAccount, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, mvpType string) ([]*models.MVPAccount, error)
	GetByExternalUserID(ctx context.Context, mvpType, externalUserID string) (*models.MVPAccount, error)
	UpdateAccountData(ctx context.Context, id uuid.UUID, data models.JSONB) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentEventStore appends to the payment audit trail
type PaymentEventStore interface {
	Log(ctx context.Context, event *models.PaymentEvent) error
}

// SearchStore runs the unified client search
type SearchStore interface {
	SearchClients(ctx context.Context, term string, limit, offset int) ([]*models.Client, int, error)
}

// Stores groups the stores bound to one connection, either the pool or a transaction
type Stores struct {
	Clients      ClientStore
	Businesses   BusinessStore
	Managers     ManagerStore
	Files        FileStore
	Handoffs     HandoffStore
	Intents      IntentStore
	Transactions TransactionStore
	Meetings     MeetingStore
	Checklists   ChecklistStore
	MVPAccounts  MVPAccountStore
}

// Transactor runs fn with stores bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}
