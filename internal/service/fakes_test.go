package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/repository"
)

type fakeQueueRepo struct {
	mu      sync.Mutex
	seq     map[int64]int64
	pending map[int64][]domain.QueueTicket
	calls   int
	nextID  int
	clock   time.Time
	// beforeDelete runs once before the next DeleteIfPresent, outside the lock.
	beforeDelete func()
	failWith     error
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		seq:     map[int64]int64{},
		pending: map[int64][]domain.QueueTicket{},
		clock:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// seed adds n tickets to serviceID through the normal numbering path.
func (f *fakeQueueRepo) seed(serviceID int64, n int) {
	for i := 0; i < n; i++ {
		seq, _ := f.NextSequence(context.Background(), serviceID)
		_ = f.Insert(context.Background(), &domain.QueueTicket{
			ServiceID:  serviceID,
			TicketCode: domain.FormatTicketCode(serviceID, seq),
		})
	}
	f.mu.Lock()
	f.calls = 0
	f.mu.Unlock()
}

func (f *fakeQueueRepo) NextSequence(_ context.Context, serviceID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.seq[serviceID]++
	return f.seq[serviceID], nil
}

func (f *fakeQueueRepo) Insert(_ context.Context, ticket *domain.QueueTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	ticket.ID = fmt.Sprintf("t-%d", f.nextID)
	ticket.CreatedAt = f.clock
	f.pending[ticket.ServiceID] = append(f.pending[ticket.ServiceID], *ticket)
	return nil
}

func (f *fakeQueueRepo) CountPending(_ context.Context, serviceID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return len(f.pending[serviceID]), nil
}

func (f *fakeQueueRepo) ListPending(_ context.Context, serviceID int64) ([]domain.QueueTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]domain.QueueTicket(nil), f.pending[serviceID]...), nil
}

func (f *fakeQueueRepo) DeleteIfPresent(_ context.Context, ticketID string) (bool, error) {
	f.mu.Lock()
	hook := f.beforeDelete
	f.beforeDelete = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for sid, queue := range f.pending {
		for i, t := range queue {
			if t.ID == ticketID {
				f.pending[sid] = append(queue[:i:i], queue[i+1:]...)
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeQueueRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[int64]*domain.Report
	history []domain.ReportHistory
	nextID  int64
	// staleOnce makes the next UpdateState lose its compare-and-swap.
	staleOnce bool
}

func newFakeReportRepo(reports ...*domain.Report) *fakeReportRepo {
	repo := &fakeReportRepo{reports: map[int64]*domain.Report{}}
	for _, r := range reports {
		repo.reports[r.ID] = r.Clone()
		if r.ID > repo.nextID {
			repo.nextID = r.ID
		}
	}
	return repo
}

func (f *fakeReportRepo) Create(_ context.Context, report *domain.Report, entry *domain.ReportHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	report.ID = f.nextID
	report.Version = 1
	f.reports[report.ID] = report.Clone()
	if entry != nil {
		entry.ReportID = report.ID
		f.history = append(f.history, *entry)
	}
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id int64) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Clone(), nil
}

func (f *fakeReportRepo) UpdateState(_ context.Context, report *domain.Report, entry *domain.ReportHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[report.ID]
	if !ok || stored.Version != report.Version || f.staleOnce {
		f.staleOnce = false
		return repository.ErrStaleState
	}
	report.Version++
	f.reports[report.ID] = report.Clone()
	if entry != nil {
		entry.ReportID = report.ID
		f.history = append(f.history, *entry)
	}
	return nil
}

func (f *fakeReportRepo) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Report{}
	for _, r := range f.reports {
		if filter.UserID != nil && (r.UserID == nil || *r.UserID != *filter.UserID) {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReportRepo) ListByReport(_ context.Context, reportID int64) ([]domain.ReportHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ReportHistory{}
	for _, h := range f.history {
		if h.ReportID == reportID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) stored(id int64) *domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[id].Clone()
}

type fakeOfficeRepo struct {
	categories  map[int64]*domain.CategoryOffice
	memberships map[[2]int64]domain.OfficeMembership
	staff       map[int64][]int64
}

func newFakeOfficeRepo() *fakeOfficeRepo {
	return &fakeOfficeRepo{
		categories:  map[int64]*domain.CategoryOffice{},
		memberships: map[[2]int64]domain.OfficeMembership{},
		staff:       map[int64][]int64{},
	}
}

func (f *fakeOfficeRepo) addMember(userID, officeID int64, role domain.UserRole) {
	f.memberships[[2]int64{userID, officeID}] = domain.OfficeMembership{UserID: userID, OfficeID: officeID, Role: role}
	if role != domain.RoleExternalMaintainer {
		f.staff[officeID] = append(f.staff[officeID], userID)
	}
}

func (f *fakeOfficeRepo) FindCategoryWithOffice(_ context.Context, categoryID int64) (*domain.CategoryOffice, error) {
	cat, ok := f.categories[categoryID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *cat
	return &copied, nil
}

func (f *fakeOfficeRepo) FindMembership(_ context.Context, userID, officeID int64) (*domain.OfficeMembership, error) {
	m, ok := f.memberships[[2]int64{userID, officeID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f *fakeOfficeRepo) ListStaff(_ context.Context, officeID int64) ([]int64, error) {
	return append([]int64(nil), f.staff[officeID]...), nil
}

// fakeConversationStore implements repository.ConversationRepository in memory.
type fakeConversationStore struct {
	mu    sync.Mutex
	convs map[int64]*domain.Conversation
	next  int64
	fail  error
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{convs: map[int64]*domain.Conversation{}}
}

func (f *fakeConversationStore) FindOrCreate(_ context.Context, reportID int64, participants []int64, isInternal bool) (*domain.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, false, f.fail
	}
	for _, c := range f.convs {
		if c.ReportID == reportID {
			return cloneConversation(c), false, nil
		}
	}
	f.next++
	conv := &domain.Conversation{ID: f.next, ReportID: reportID, IsInternal: isInternal}
	for _, p := range participants {
		if !conv.HasParticipant(p) {
			conv.Participants = append(conv.Participants, p)
		}
	}
	f.convs[conv.ID] = conv
	return cloneConversation(conv), true, nil
}

func (f *fakeConversationStore) FindByReport(_ context.Context, reportID int64) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.ReportID == reportID {
			return cloneConversation(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversationStore) AddParticipant(_ context.Context, conversationID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[conversationID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if c.HasParticipant(userID) {
		return false, nil
	}
	c.Participants = append(c.Participants, userID)
	return true, nil
}

func (f *fakeConversationStore) ListParticipants(_ context.Context, conversationID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	c, ok := f.convs[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return append([]int64(nil), c.Participants...), nil
}

func (f *fakeConversationStore) byReport(reportID int64) *domain.Conversation {
	c, err := f.FindByReport(context.Background(), reportID)
	if err != nil {
		return nil
	}
	return c
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	copied := *c
	copied.Participants = append([]int64(nil), c.Participants...)
	return &copied
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads []any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return nil
}

var errStoreDown = errors.New("store down")
