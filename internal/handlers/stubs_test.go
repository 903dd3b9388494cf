package handlers

import (
	"context"
	"io"
	"time"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubReconciler struct {
	body     []byte
	transfer *models.DirectTransfer
	result   *services.ReconcileResult
	err      error
}

func (s *stubReconciler) HandleNotification(ctx context.Context, body []byte, requester services.Requester) (*services.ReconcileResult, error) {
	s.body = body
	return s.result, s.err
}

func (s *stubReconciler) RecordTransfer(ctx context.Context, transfer *models.DirectTransfer, requester services.Requester) (*services.ReconcileResult, error) {
	s.transfer = transfer
	return s.result, s.err
}

type stubPayments struct {
	linkReq  *models.PaymentLinkRequest
	filter   models.IntentFilter
	from, to *time.Time
	err      error
}

func (s *stubPayments) GenerateLink(ctx context.Context, req *models.PaymentLinkRequest, requester services.Requester) (*models.PaymentLinkResponse, error) {
	s.linkReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.PaymentLinkResponse{URL: "https://pay.test/link", IntentID: "intent-1"}, nil
}

func (s *stubPayments) ListIntents(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, models.Pagination, error) {
	s.filter = filter
	return []*models.PaymentIntent{}, models.NewPagination(0, filter.Page, filter.Limit), s.err
}

func (s *stubPayments) Summary(ctx context.Context, from, to *time.Time) (*models.PaymentsSummary, error) {
	s.from, s.to = from, to
	return &models.PaymentsSummary{}, s.err
}

type stubMeetings struct {
	payload *models.AppointmentWebhook
	result  *services.AppointmentResult
	status  models.MeetingStatus
	err     error
}

func (s *stubMeetings) HandleAppointment(ctx context.Context, payload *models.AppointmentWebhook) (*services.AppointmentResult, error) {
	s.payload = payload
	return s.result, s.err
}

func (s *stubMeetings) AssignMeeting(ctx context.Context, meetingID string, req models.MeetingAssignment) (*models.Meeting, error) {
	return &models.Meeting{}, s.err
}

func (s *stubMeetings) UpdateStatus(ctx context.Context, meetingID string, status models.MeetingStatus) (*models.Meeting, error) {
	s.status = status
	return &models.Meeting{Status: status}, s.err
}

func (s *stubMeetings) ClientMeetingStatus(ctx context.Context, clientID string) (*models.MeetingStatusSummary, error) {
	return &models.MeetingStatusSummary{}, s.err
}

func (s *stubMeetings) ConfirmStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error) {
	return &models.Meeting{}, s.err
}

func (s *stubMeetings) CompleteDataStrategyMeeting(ctx context.Context, clientID, businessID string) (*models.Meeting, error) {
	return &models.Meeting{}, s.err
}

func (s *stubMeetings) ListUnassigned(ctx context.Context) ([]*models.Meeting, error) {
	return nil, s.err
}

func (s *stubMeetings) ListByClient(ctx context.Context, clientID string) ([]*models.Meeting, error) {
	return nil, s.err
}

func (s *stubMeetings) DeleteMeeting(ctx context.Context, meetingID string) error {
	return s.err
}

type stubChecklists struct {
	update models.ChecklistItemUpdate
	err    error
}

func (s *stubChecklists) Get(ctx context.Context, businessID string) (*models.Checklist, error) {
	return &models.Checklist{}, s.err
}

func (s *stubChecklists) SetItem(ctx context.Context, businessID, phaseID, itemID string, update models.ChecklistItemUpdate) (*models.Checklist, error) {
	s.update = update
	return &models.Checklist{}, s.err
}

func (s *stubChecklists) NextPhase(ctx context.Context, businessID string) (*models.Checklist, error) {
	return &models.Checklist{}, s.err
}

func (s *stubChecklists) Progress(ctx context.Context, businessID string) (*models.ChecklistProgress, error) {
	return &models.ChecklistProgress{TotalPhases: 6}, s.err
}

func (s *stubChecklists) UpdateObservations(ctx context.Context, businessID, phaseID string, update models.ChecklistObservationsUpdate) (*models.Checklist, error) {
	return &models.Checklist{}, s.err
}

type uploadedFile struct {
	field, name, content string
}

type stubBusinesses struct {
	intake  models.ConsultancyIntake
	files   []uploadedFile
	payload map[string]interface{}
	minAge  time.Duration
	err     error
}

func (s *stubBusinesses) Get(ctx context.Context, businessID string) (*models.Business, error) {
	return &models.Business{Name: "Café Aurora"}, s.err
}

func (s *stubBusinesses) SubmitIntake(ctx context.Context, businessID string, intake models.ConsultancyIntake, files []services.IntakeFile) (*models.IntakeResult, error) {
	s.intake = intake
	for _, f := range files {
		content, _ := io.ReadAll(f.Body)
		s.files = append(s.files, uploadedFile{field: f.Field, name: f.Name, content: string(content)})
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.IntakeResult{Message: services.MessageIntakeSaved}, nil
}

func (s *stubBusinesses) Edit(ctx context.Context, businessID string, payload map[string]interface{}) (*models.Business, error) {
	s.payload = payload
	return &models.Business{}, s.err
}

func (s *stubBusinesses) AddManager(ctx context.Context, businessID string, req models.ManagerRequest) (*models.Manager, error) {
	return &models.Manager{Name: req.Name}, s.err
}

func (s *stubBusinesses) ListManagers(ctx context.Context, businessID string) ([]*models.Manager, error) {
	return nil, s.err
}

func (s *stubBusinesses) RemoveManager(ctx context.Context, businessID, managerID string) error {
	return s.err
}

func (s *stubBusinesses) CreateHandoff(ctx context.Context, businessID string, req models.HandoffRequest) (*models.Handoff, error) {
	return &models.Handoff{}, s.err
}

func (s *stubBusinesses) GetHandoff(ctx context.Context, businessID string) (*models.Handoff, error) {
	return &models.Handoff{}, s.err
}

func (s *stubBusinesses) Delete(ctx context.Context, businessID string) error {
	return s.err
}

func (s *stubBusinesses) SendUploadReminders(ctx context.Context, minAge time.Duration) (int, error) {
	s.minAge = minAge
	return 3, s.err
}

type stubClients struct {
	filter models.ClientFilter
	err    error
}

func (s *stubClients) List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, models.Pagination, error) {
	s.filter = filter
	return nil, models.NewPagination(0, filter.Page, filter.Limit), s.err
}

func (s *stubClients) Detail(ctx context.Context, clientID string) (*models.ClientDetail, error) {
	return &models.ClientDetail{}, s.err
}

func (s *stubClients) OwnedBusiness(ctx context.Context, clientID, businessID string) (*models.Business, error) {
	return &models.Business{}, s.err
}

func (s *stubClients) Forget(ctx context.Context, clientID string) error {
	return s.err
}

type stubSearch struct {
	req *models.SearchRequest
	err error
}

func (s *stubSearch) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResponse{Message: "No results found.", Data: []*models.SearchResult{}}, nil
}

type stubStoryBrand struct {
	err error
}

func (s *stubStoryBrand) CreateAccount(ctx context.Context, req models.StoryBrandAccountRequest) (*models.MVPAccount, error) {
	return &models.MVPAccount{ID: uuid.New()}, s.err
}

func (s *stubStoryBrand) ChangePassword(ctx context.Context, req models.StoryBrandPasswordRequest) (*models.MVPAccount, error) {
	return &models.MVPAccount{}, s.err
}

func (s *stubStoryBrand) DeleteAccount(ctx context.Context, clientID string) error {
	return s.err
}

func (s *stubStoryBrand) ListByClient(ctx context.Context, clientID string) ([]*models.MVPAccount, error) {
	return []*models.MVPAccount{}, s.err
}

type stubPinger struct {
	err error
}

func (s stubPinger) PingContext(ctx context.Context) error {
	return s.err
}
