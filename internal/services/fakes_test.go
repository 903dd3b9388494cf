package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/pkg/pagoplux"
	"github.com/bakano/consultancy-backend/pkg/storybrand"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// memDB is an in-memory rendition of the schema constraints the services rely on
type memDB struct {
	mu    sync.Mutex
	clock time.Time

	clients      map[uuid.UUID]*models.Client
	businesses   map[uuid.UUID]*models.Business
	managers     map[uuid.UUID]*models.Manager
	files        map[uuid.UUID]*models.BusinessFile
	handoffs     map[uuid.UUID]*models.Handoff
	intents      map[string]*models.PaymentIntent
	transactions map[string]*models.Transaction
	meetings     map[uuid.UUID]*models.Meeting
	checklists   map[uuid.UUID]*models.Checklist
	accounts     map[uuid.UUID]*models.MVPAccount
	events       []*models.PaymentEvent

	// failures injected per operation name
	fail map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		clock:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		clients:      make(map[uuid.UUID]*models.Client),
		businesses:   make(map[uuid.UUID]*models.Business),
		managers:     make(map[uuid.UUID]*models.Manager),
		files:        make(map[uuid.UUID]*models.BusinessFile),
		handoffs:     make(map[uuid.UUID]*models.Handoff),
		intents:      make(map[string]*models.PaymentIntent),
		transactions: make(map[string]*models.Transaction),
		meetings:     make(map[uuid.UUID]*models.Meeting),
		checklists:   make(map[uuid.UUID]*models.Checklist),
		accounts:     make(map[uuid.UUID]*models.MVPAccount),
		fail:         make(map[string]error),
	}
}

// tick returns a strictly increasing timestamp so creation order is stable
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) failure(op string) error {
	return db.fail[op]
}

func (db *memDB) stores() Stores {
	return Stores{
		Clients:      &memClients{db},
		Businesses:   &memBusinesses{db},
		Managers:     &memManagers{db},
		Files:        &memFiles{db},
		Handoffs:     &memHandoffs{db},
		Intents:      &memIntents{db},
		Transactions: &memTransactions{db},
		Meetings:     &memMeetings{db},
		Checklists:   &memChecklists{db},
		MVPAccounts:  &memAccounts{db},
	}
}

// memTx serialises transactions, which is what the advisory and row locks
// give the SQL implementation for the rows the services touch
type memTx struct {
	mu sync.Mutex
	db *memDB
}

func (t *memTx) WithinTx(ctx context.Context, fn func(Stores) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.db.stores())
}

// ---------------------------------------------------------------------------
// clients

type memClients struct{ db *memDB }

func (s *memClients) LockEmail(ctx context.Context, email string) error { return nil }

func (s *memClients) Create(ctx context.Context, client *models.Client) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("clients.create"); err != nil {
		return err
	}
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	client.CreatedAt = s.db.tick()
	client.UpdatedAt = client.CreatedAt
	c := *client
	s.db.clients[c.ID] = &c
	return nil
}

func (s *memClients) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c, ok := s.db.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *memClients) oldest(match func(*models.Client) bool) *models.Client {
	var found *models.Client
	for _, c := range s.db.clients {
		if match(c) && (found == nil || c.CreatedAt.Before(found.CreatedAt)) {
			found = c
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

func (s *memClients) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.oldest(func(c *models.Client) bool { return c.Email == email }), nil
}

var memNonDigits = regexp.MustCompile(`\D`)

func (s *memClients) FindByPhoneSuffix(ctx context.Context, suffix string) (*models.Client, error) {
	if suffix == "" {
		return nil, nil
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.oldest(func(c *models.Client) bool {
		return strings.HasSuffix(memNonDigits.ReplaceAllString(c.Phone, ""), suffix)
	}), nil
}

func (s *memClients) SetNationalID(ctx context.Context, id uuid.UUID, nationalID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c, ok := s.db.clients[id]; ok {
		c.NationalID = &nationalID
	}
	return nil
}

func (s *memClients) UpdatePaymentSnapshot(ctx context.Context, id uuid.UUID, snapshot models.PaymentSnapshot) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.clients[id]
	if !ok {
		return fmt.Errorf("client %s not found", id)
	}
	c.PreferredPaymentMethod = optionalString(snapshot.Method)
	c.PaymentBank = optionalString(snapshot.Bank)
	c.CardType = optionalString(snapshot.CardType)
	c.CardInfo = optionalString(snapshot.CardInfo)
	paidAt := snapshot.PaidAt
	c.LastPaymentDate = &paidAt
	return nil
}

func (s *memClients) List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var matched []*models.Client
	for _, c := range s.db.clients {
		if filter.Email != "" && !strings.Contains(strings.ToLower(c.Email), strings.ToLower(filter.Email)) {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Phone != "" && !strings.Contains(c.Phone, filter.Phone) {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, filter.Page, filter.Limit), len(matched), nil
}

func (s *memClients) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.clients[id]; !ok {
		return false, nil
	}
	delete(s.db.clients, id)
	for bid, b := range s.db.businesses {
		if b.OwnerID == id {
			s.db.deleteBusiness(bid)
		}
	}
	for k, t := range s.db.transactions {
		if t.ClientID == id {
			delete(s.db.transactions, k)
		}
	}
	for k, a := range s.db.accounts {
		if a.ClientID == id {
			delete(s.db.accounts, k)
		}
	}
	for _, m := range s.db.meetings {
		if m.ClientID != nil && *m.ClientID == id {
			m.ClientID = nil
		}
	}
	return true, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---------------------------------------------------------------------------
// businesses

type memBusinesses struct{ db *memDB }

func (s *memBusinesses) Create(ctx context.Context, business *models.Business) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if business.RUC != nil {
		for _, b := range s.db.businesses {
			if b.RUC != nil && *b.RUC == *business.RUC {
				return database.ErrDuplicateRUC
			}
		}
	}
	if business.ID == uuid.Nil {
		business.ID = uuid.New()
	}
	business.CreatedAt = s.db.tick()
	business.UpdatedAt = business.CreatedAt
	b := *business
	s.db.businesses[b.ID] = &b
	return nil
}

func (s *memBusinesses) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if b, ok := s.db.businesses[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *memBusinesses) sorted(match func(*models.Business) bool) []*models.Business {
	list := []*models.Business{}
	for _, b := range s.db.businesses {
		if match(b) {
			cp := *b
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func (s *memBusinesses) FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := s.sorted(func(b *models.Business) bool { return b.OwnerID == ownerID && b.Name == name })
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *memBusinesses) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(b *models.Business) bool { return b.OwnerID == ownerID }), nil
}

func (s *memBusinesses) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	owners := make(map[uuid.UUID]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	return s.sorted(func(b *models.Business) bool { return owners[b.OwnerID] }), nil
}

func (s *memBusinesses) FindByManagerEmail(ctx context.Context, email string) ([]*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ids := map[uuid.UUID]bool{}
	for _, m := range s.db.managers {
		if m.Email == strings.ToLower(email) {
			ids[m.BusinessID] = true
		}
	}
	return s.sorted(func(b *models.Business) bool { return ids[b.ID] }), nil
}

func (s *memBusinesses) Update(ctx context.Context, id uuid.UUID, columns map[string]interface{}) (*models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.businesses[id]
	if !ok {
		return nil, nil
	}
	str := func(v interface{}) *string {
		if v == nil {
			return nil
		}
		s := v.(string)
		return &s
	}
	if ruc := str(columns["ruc"]); ruc != nil {
		for _, other := range s.db.businesses {
			if other.ID != id && other.RUC != nil && *other.RUC == *ruc {
				return nil, database.ErrDuplicateRUC
			}
		}
	}
	for column, value := range columns {
		switch column {
		case "name":
			b.Name = value.(string)
		case "ruc":
			b.RUC = str(value)
		case "address":
			b.Address = str(value)
		case "phone":
			b.Phone = str(value)
		case "email":
			b.Email = str(value)
		case "business_type":
			b.BusinessType = models.BusinessType(value.(string))
		case "onboarding_step":
			b.OnboardingStep = models.OnboardingStep(value.(string))
		case "value_proposition":
			b.ValueProposition = str(value)
		case "instagram":
			b.Instagram = str(value)
		case "empleados":
			b.Empleados = str(value)
		default:
			// remaining intake columns are not inspected by the tests
		}
	}
	cp := *b
	return &cp, nil
}

func (s *memBusinesses) SetOnboardingStep(ctx context.Context, id uuid.UUID, step models.OnboardingStep) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if b, ok := s.db.businesses[id]; ok {
		b.OnboardingStep = step
	}
	return nil
}

func (s *memBusinesses) CompleteOnboarding(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if b, ok := s.db.businesses[id]; ok {
		b.OnboardingStep = models.OnboardingStepCompleted
		b.OnboardingCompletedAt = &completedAt
	}
	return nil
}

func (db *memDB) deleteBusiness(id uuid.UUID) {
	delete(db.businesses, id)
	delete(db.checklists, id)
	delete(db.handoffs, id)
	for k, m := range db.managers {
		if m.BusinessID == id {
			delete(db.managers, k)
		}
	}
	for k, f := range db.files {
		if f.BusinessID == id {
			delete(db.files, k)
		}
	}
	for k, m := range db.meetings {
		if m.BusinessID != nil && *m.BusinessID == id {
			delete(db.meetings, k)
		}
	}
}

func (s *memBusinesses) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.businesses[id]; !ok {
		return false, nil
	}
	s.db.deleteBusiness(id)
	return true, nil
}

func (s *memBusinesses) ListReminderTargets(ctx context.Context, createdBefore time.Time) ([]*models.ReminderTarget, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	withFiles := map[uuid.UUID]bool{}
	for _, f := range s.db.files {
		withFiles[f.BusinessID] = true
	}
	list := s.sorted(func(b *models.Business) bool {
		return b.CreatedAt.Before(createdBefore) && b.OnboardingStep != models.OnboardingStepCompleted && !withFiles[b.ID]
	})
	targets := make([]*models.ReminderTarget, 0, len(list))
	for _, b := range list {
		owner := s.db.clients[b.OwnerID]
		targets = append(targets, &models.ReminderTarget{
			BusinessID:    b.ID,
			BusinessName:  b.Name,
			BusinessEmail: b.Email,
			OwnerID:       b.OwnerID,
			OwnerEmail:    owner.Email,
		})
	}
	return targets, nil
}

func (s *memBusinesses) BackfillBusinessType(ctx context.Context, valid []models.BusinessType, fallback models.BusinessType) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	known := map[models.BusinessType]bool{}
	for _, t := range valid {
		known[t] = true
	}
	var updated int64
	for _, b := range s.db.businesses {
		if !known[b.BusinessType] {
			b.BusinessType = fallback
			updated++
		}
	}
	return updated, nil
}

// ---------------------------------------------------------------------------
// managers, files, handoffs

type memManagers struct{ db *memDB }

func (s *memManagers) Create(ctx context.Context, manager *models.Manager) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	manager.Email = strings.ToLower(strings.TrimSpace(manager.Email))
	for _, m := range s.db.managers {
		if m.BusinessID == manager.BusinessID && m.Email == manager.Email {
			return database.ErrAlreadyExists
		}
	}
	if manager.ID == uuid.Nil {
		manager.ID = uuid.New()
	}
	manager.CreatedAt = s.db.tick()
	m := *manager
	s.db.managers[m.ID] = &m
	return nil
}

func (s *memManagers) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.Manager, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := []*models.Manager{}
	for _, m := range s.db.managers {
		if m.BusinessID == businessID {
			cp := *m
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s *memManagers) Delete(ctx context.Context, businessID, managerID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.managers[managerID]
	if !ok || m.BusinessID != businessID {
		return false, nil
	}
	delete(s.db.managers, managerID)
	return true, nil
}

type memFiles struct{ db *memDB }

func (s *memFiles) Upsert(ctx context.Context, file *models.BusinessFile) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, f := range s.db.files {
		if f.BusinessID == file.BusinessID && f.FieldName == file.FieldName {
			f.URL = file.URL
			f.OriginalName = file.OriginalName
			f.UploadedAt = s.db.tick()
			return nil
		}
	}
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	file.UploadedAt = s.db.tick()
	f := *file
	s.db.files[f.ID] = &f
	return nil
}

func (s *memFiles) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*models.BusinessFile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := []*models.BusinessFile{}
	for _, f := range s.db.files {
		if f.BusinessID == businessID {
			cp := *f
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FieldName < list[j].FieldName })
	return list, nil
}

type memHandoffs struct{ db *memDB }

func (s *memHandoffs) Create(ctx context.Context, handoff *models.Handoff) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.handoffs[handoff.BusinessID]; exists {
		return database.ErrAlreadyExists
	}
	if handoff.ID == uuid.Nil {
		handoff.ID = uuid.New()
	}
	handoff.CreatedAt = s.db.tick()
	h := *handoff
	s.db.handoffs[h.BusinessID] = &h
	return nil
}

func (s *memHandoffs) GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Handoff, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if h, ok := s.db.handoffs[businessID]; ok {
		cp := *h
		return &cp, nil
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// payments

type memIntents struct{ db *memDB }

func (s *memIntents) Create(ctx context.Context, intent *models.PaymentIntent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.intents[intent.IntentID]; exists {
		return database.ErrAlreadyExists
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	intent.CreatedAt = s.db.tick()
	i := *intent
	s.db.intents[i.IntentID] = &i
	return nil
}

func (s *memIntents) GetByIntentID(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if i, ok := s.db.intents[intentID]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (s *memIntents) ClaimPending(ctx context.Context, intentID string, paidAt time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i, ok := s.db.intents[intentID]
	if !ok || i.State != models.IntentStatePending {
		return false, nil
	}
	i.State = models.IntentStatePaid
	i.PaidAt = &paidAt
	return true, nil
}

func (s *memIntents) AttachResolution(ctx context.Context, intentID string, resolution models.IntentResolution) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i, ok := s.db.intents[intentID]
	if !ok {
		return fmt.Errorf("intent %s not found", intentID)
	}
	i.BusinessID = &resolution.BusinessID
	i.ClientID = &resolution.ClientID
	i.TransactionID = &resolution.TransactionID
	return nil
}

func (s *memIntents) List(ctx context.Context, filter models.IntentFilter) ([]*models.PaymentIntent, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var list []*models.PaymentIntent
	for _, i := range s.db.intents {
		if filter.State != "" && i.State != filter.State {
			continue
		}
		cp := *i
		list = append(list, &cp)
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
	return paginate(list, filter.Page, filter.Limit), len(list), nil
}

func (s *memIntents) Summary(ctx context.Context, from, to *time.Time) (*models.IntentSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	summary := &models.IntentSummary{}
	for _, i := range s.db.intents {
		summary.TotalCount++
		summary.TotalAmount += i.Amount
		switch i.State {
		case models.IntentStatePending:
			summary.Pending.Count++
			summary.Pending.Amount += i.Amount
		case models.IntentStatePaid:
			summary.Paid.Count++
			summary.Paid.Amount += i.Amount
		}
	}
	return summary, nil
}

type memTransactions struct{ db *memDB }

func (s *memTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.transactions[tx.TransactionID]; exists {
		return database.ErrAlreadyExists
	}
	if _, ok := s.db.clients[tx.ClientID]; !ok {
		return fmt.Errorf("transaction references missing client %s", tx.ClientID)
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = s.db.tick()
	t := *tx
	s.db.transactions[t.TransactionID] = &t
	return nil
}

func (s *memTransactions) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := []*models.Transaction{}
	for _, t := range s.db.transactions {
		if t.ClientID == clientID {
			cp := *t
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
	return list, nil
}

func (s *memTransactions) Summary(ctx context.Context, from, to *time.Time) (*models.ConfirmedPaymentsSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	summary := &models.ConfirmedPaymentsSummary{}
	for _, t := range s.db.transactions {
		summary.Total++
		summary.TotalPaidAmount += t.Amount
		if t.IsDirectTransfer() {
			summary.DirectTransfer.Count++
			summary.DirectTransfer.Amount += t.Amount
		} else {
			summary.WithIntent.Count++
			summary.WithIntent.Amount += t.Amount
		}
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// meetings

type memMeetings struct{ db *memDB }

func (s *memMeetings) Create(ctx context.Context, meeting *models.Meeting) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if meeting.SourceID != nil {
		for _, m := range s.db.meetings {
			if m.SourceID != nil && *m.SourceID == *meeting.SourceID {
				return false, nil
			}
		}
	}
	if meeting.ID == uuid.Nil {
		meeting.ID = uuid.New()
	}
	meeting.CreatedAt = s.db.tick()
	meeting.UpdatedAt = meeting.CreatedAt
	m := *meeting
	s.db.meetings[m.ID] = &m
	return true, nil
}

func (s *memMeetings) Schedule(ctx context.Context, meeting *models.Meeting) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.meetings[meeting.ID]
	if !ok || existing.Status != models.MeetingStatusPendingSchedule {
		return false, nil
	}
	meeting.UpdatedAt = s.db.tick()
	m := *meeting
	s.db.meetings[m.ID] = &m
	return true, nil
}

func (s *memMeetings) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m, ok := s.db.meetings[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *memMeetings) GetBySourceID(ctx context.Context, sourceID string) (*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, m := range s.db.meetings {
		if m.SourceID != nil && *m.SourceID == sourceID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memMeetings) sorted(match func(*models.Meeting) bool) []*models.Meeting {
	list := []*models.Meeting{}
	for _, m := range s.db.meetings {
		if match(m) {
			cp := *m
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (s *memMeetings) first(match func(*models.Meeting) bool) *models.Meeting {
	list := s.sorted(match)
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

func (s *memMeetings) FindPendingSchedule(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.first(func(m *models.Meeting) bool {
		return m.BusinessID != nil && *m.BusinessID == businessID && m.MeetingType == meetingType &&
			m.Status == models.MeetingStatusPendingSchedule
	}), nil
}

func (s *memMeetings) FindByBusinessAndType(ctx context.Context, businessID uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.first(func(m *models.Meeting) bool {
		return m.BusinessID != nil && *m.BusinessID == businessID && m.MeetingType == meetingType
	}), nil
}

func (s *memMeetings) LatestByClient(ctx context.Context, clientID uuid.UUID, businessID *uuid.UUID, meetingType models.MeetingType) (*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.first(func(m *models.Meeting) bool {
		if m.ClientID == nil || *m.ClientID != clientID || m.MeetingType != meetingType {
			return false
		}
		return businessID == nil || (m.BusinessID != nil && *m.BusinessID == *businessID)
	}), nil
}

func (s *memMeetings) ListUnassigned(ctx context.Context) ([]*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(m *models.Meeting) bool { return !m.IsAssigned() }), nil
}

func (s *memMeetings) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Meeting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.sorted(func(m *models.Meeting) bool { return m.ClientID != nil && *m.ClientID == clientID }), nil
}

func (s *memMeetings) Assign(ctx context.Context, id, clientID uuid.UUID, businessID *uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.meetings[id]
	if !ok || m.IsAssigned() {
		return false, nil
	}
	m.ClientID = &clientID
	m.BusinessID = businessID
	return true, nil
}

func (s *memMeetings) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m, ok := s.db.meetings[id]; ok {
		m.Status = status
	}
	return nil
}

func (s *memMeetings) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.meetings[id]; !ok {
		return false, nil
	}
	delete(s.db.meetings, id)
	return true, nil
}

// ---------------------------------------------------------------------------
// checklists

type memChecklists struct{ db *memDB }

func cloneChecklist(c *models.Checklist) *models.Checklist {
	cp := *c
	cp.Phases = make(models.ChecklistPhases, len(c.Phases))
	for i, phase := range c.Phases {
		phase.Items = append([]models.ChecklistItem(nil), phase.Items...)
		cp.Phases[i] = phase
	}
	return &cp
}

func (s *memChecklists) GetByBusiness(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c, ok := s.db.checklists[businessID]; ok {
		return cloneChecklist(c), nil
	}
	return nil, nil
}

func (s *memChecklists) GetByBusinessForUpdate(ctx context.Context, businessID uuid.UUID) (*models.Checklist, error) {
	return s.GetByBusiness(ctx, businessID)
}

func (s *memChecklists) Create(ctx context.Context, checklist *models.Checklist) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.checklists[checklist.BusinessID]; exists {
		return false, nil
	}
	if checklist.ID == uuid.Nil {
		checklist.ID = uuid.New()
	}
	checklist.CreatedAt = s.db.tick()
	s.db.checklists[checklist.BusinessID] = cloneChecklist(checklist)
	return true, nil
}

func (s *memChecklists) Update(ctx context.Context, checklist *models.Checklist) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	checklist.UpdatedAt = s.db.tick()
	s.db.checklists[checklist.BusinessID] = cloneChecklist(checklist)
	return nil
}

func (s *memChecklists) ListOutdated(ctx context.Context, version int) ([]*models.Checklist, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := []*models.Checklist{}
	for _, c := range s.db.checklists {
		if c.TemplateVersion < version {
			list = append(list, cloneChecklist(c))
		}
	}
	return list, nil
}

// ---------------------------------------------------------------------------
// mvp accounts

type memAccounts struct{ db *memDB }

func (s *memAccounts) Create(ctx context.Context, account *models.MVPAccount) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.ClientID == account.ClientID && a.MVPType == account.MVPType {
			return database.ErrAlreadyExists
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = s.db.tick()
	a := *account
	s.db.accounts[a.ID] = &a
	return nil
}

func (s *memAccounts) GetByClient(ctx context.Context, clientID uuid.UUID, mvpType string) (*models.MVPAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.ClientID == clientID && a.MVPType == mvpType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memAccounts) ListByClient(ctx context.Context, clientID uuid.UUID, mvpType string) ([]*models.MVPAccount, error) {
	a, err := s.GetByClient(ctx, clientID, mvpType)
	if err != nil || a == nil {
		return []*models.MVPAccount{}, err
	}
	return []*models.MVPAccount{a}, nil
}

func (s *memAccounts) GetByExternalUserID(ctx context.Context, mvpType, externalUserID string) (*models.MVPAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.MVPType == mvpType && a.ExternalUserID != nil && *a.ExternalUserID == externalUserID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memAccounts) UpdateAccountData(ctx context.Context, id uuid.UUID, data models.JSONB) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if a, ok := s.db.accounts[id]; ok {
		a.AccountData = data
	}
	return nil
}

func (s *memAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.accounts, id)
	return nil
}

// ---------------------------------------------------------------------------
// payment events and search

type memEvents struct{ db *memDB }

func (s *memEvents) Log(ctx context.Context, event *models.PaymentEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.events = append(s.db.events, event)
	return nil
}

func (db *memDB) eventTypes() []models.PaymentEventType {
	db.mu.Lock()
	defer db.mu.Unlock()
	types := make([]models.PaymentEventType, 0, len(db.events))
	for _, e := range db.events {
		types = append(types, e.EventType)
	}
	return types
}

type memSearch struct{ db *memDB }

func (s *memSearch) SearchClients(ctx context.Context, term string, limit, offset int) ([]*models.Client, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	term = strings.ToLower(term)
	contains := func(values ...string) bool {
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), term) {
				return true
			}
		}
		return false
	}

	matched := map[uuid.UUID]bool{}
	for _, c := range s.db.clients {
		nationalID := ""
		if c.NationalID != nil {
			nationalID = *c.NationalID
		}
		if contains(c.Name, c.Email, c.Phone, nationalID) {
			matched[c.ID] = true
		}
	}
	for _, b := range s.db.businesses {
		ruc := ""
		if b.RUC != nil {
			ruc = *b.RUC
		}
		if contains(b.Name, ruc) {
			matched[b.OwnerID] = true
		}
	}
	for _, m := range s.db.managers {
		if contains(m.Name, m.Email) {
			if b, ok := s.db.businesses[m.BusinessID]; ok {
				matched[b.OwnerID] = true
			}
		}
	}

	list := []*models.Client{}
	for id := range matched {
		if c, ok := s.db.clients[id]; ok {
			cp := *c
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	total := len(list)
	if offset >= len(list) {
		return []*models.Client{}, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

// ---------------------------------------------------------------------------
// collaborators

type sentMail struct {
	Kind string
	To   []string
	Args []string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind string, to []string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, To: to, Args: args})
	return m.err
}

func (m *fakeMailer) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func (m *fakeMailer) SendOnboarding(ctx context.Context, to, name, clientID, businessID string) error {
	return m.record("onboarding", []string{to}, name, clientID, businessID)
}

func (m *fakeMailer) SendPaymentConfirmation(ctx context.Context, to, name, businessName string) error {
	return m.record("confirmation", []string{to}, name, businessName)
}

func (m *fakeMailer) SendPolicy(ctx context.Context, to, name, businessName string) error {
	return m.record("policy", []string{to}, name, businessName)
}

func (m *fakeMailer) SendManagerInvite(ctx context.Context, to, managerName, businessName, clientID, businessID string) error {
	return m.record("manager_invite", []string{to}, managerName, businessName, clientID, businessID)
}

func (m *fakeMailer) SendUploadNotification(ctx context.Context, businessName, businessID string, fileURLs []string) error {
	return m.record("upload_notification", nil, append([]string{businessName, businessID}, fileURLs...)...)
}

func (m *fakeMailer) SendUploadReminder(ctx context.Context, to []string, businessName, clientID, businessID string) error {
	return m.record("upload_reminder", to, businessName, clientID, businessID)
}

func (m *fakeMailer) SendDataDeletion(ctx context.Context, to, name string) error {
	return m.record("data_deletion", []string{to}, name)
}

func (m *fakeMailer) SendBusinessDeleted(ctx context.Context, to, name, businessName string) error {
	return m.record("business_deleted", []string{to}, name, businessName)
}

type fakeStorage struct {
	mu        sync.Mutex
	folders   map[string]bool
	uploads   map[string][]string
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{folders: map[string]bool{}, uploads: map[string][]string{}}
}

func (s *fakeStorage) EnsureFolder(ctx context.Context, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[folder] = true
	return nil
}

func (s *fakeStorage) Upload(ctx context.Context, folder, originalName, contentType string, body io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	s.uploads[folder] = append(s.uploads[folder], originalName)
	return "https://files.test/" + folder + "/" + originalName, nil
}

func (s *fakeStorage) DeleteFolder(ctx context.Context, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, folder)
	return s.deleteErr
}

type fakeLinks struct {
	last pagoplux.LinkRequest
	url  string
	err  error
}

func (f *fakeLinks) CreatePaymentLink(ctx context.Context, req pagoplux.LinkRequest) (string, error) {
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeStoryBrand struct {
	created   []storybrand.CreateAccountRequest
	changed   map[string]string
	deleted   []string
	createOut map[string]interface{}
	changeOut map[string]interface{}
	err       error
}

func (f *fakeStoryBrand) CreateAccount(ctx context.Context, req storybrand.CreateAccountRequest) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return f.createOut, nil
}

func (f *fakeStoryBrand) ChangePassword(ctx context.Context, externalUserID, newPassword string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.changed == nil {
		f.changed = map[string]string{}
	}
	f.changed[externalUserID] = newPassword
	return f.changeOut, nil
}

func (f *fakeStoryBrand) DeleteAccount(ctx context.Context, externalUserID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, externalUserID)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	dropped []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]interface{}{}}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	summary, ok := value.(*models.PaymentsSummary)
	target, okDst := dst.(*models.PaymentsSummary)
	if !ok || !okDst {
		return false, errors.New("unexpected cache value type")
	}
	*target = *summary
	return true, nil
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = append(c.dropped, prefix)
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// fixtures

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func seedClient(db *memDB, name, email, phone string) *models.Client {
	client := &models.Client{
		Name:       name,
		Email:      email,
		Phone:      phone,
		Country:    models.DefaultClientCountry,
		City:       models.DefaultClientCity,
		ClientType: models.ClientTypeMedium,
	}
	if err := (&memClients{db}).Create(context.Background(), client); err != nil {
		panic(err)
	}
	return client
}

func seedBusiness(db *memDB, owner *models.Client, name string) *models.Business {
	business := &models.Business{
		OwnerID:        owner.ID,
		Name:           name,
		BusinessType:   models.BusinessTypeRestaurant,
		OnboardingStep: models.OnboardingStepOnBoarding,
	}
	if err := (&memBusinesses{db}).Create(context.Background(), business); err != nil {
		panic(err)
	}
	return business
}
