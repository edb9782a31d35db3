package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-service/internal/auth"
	"github.com/spec-kit/civic-service/internal/config"
	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/events"
	"github.com/spec-kit/civic-service/internal/observability"
	"github.com/spec-kit/civic-service/internal/repository"
	"github.com/spec-kit/civic-service/internal/service"
)

type memQueue struct {
	mu      sync.Mutex
	seq     map[int64]int64
	pending map[int64][]domain.QueueTicket
	n       int
}

func (m *memQueue) NextSequence(_ context.Context, serviceID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[serviceID]++
	return m.seq[serviceID], nil
}

func (m *memQueue) Insert(_ context.Context, t *domain.QueueTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	t.ID = "ticket-" + strconv.Itoa(m.n)
	t.CreatedAt = time.Now()
	m.pending[t.ServiceID] = append(m.pending[t.ServiceID], *t)
	return nil
}

func (m *memQueue) CountPending(_ context.Context, serviceID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending[serviceID]), nil
}

func (m *memQueue) ListPending(_ context.Context, serviceID int64) ([]domain.QueueTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.QueueTicket(nil), m.pending[serviceID]...), nil
}

func (m *memQueue) DeleteIfPresent(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, q := range m.pending {
		for i := range q {
			if q[i].ID == id {
				m.pending[sid] = append(q[:i:i], q[i+1:]...)
				return true, nil
			}
		}
	}
	return false, nil
}

type memReports struct {
	mu      sync.Mutex
	reports map[int64]*domain.Report
	history []domain.ReportHistory
}

func (m *memReports) Create(_ context.Context, r *domain.Report, h *domain.ReportHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.reports) + 1)
	r.Version = 1
	m.reports[r.ID] = r.Clone()
	if h != nil {
		h.ReportID = r.ID
		m.history = append(m.history, *h)
	}
	return nil
}

func (m *memReports) GetByID(_ context.Context, id int64) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memReports) UpdateState(_ context.Context, r *domain.Report, h *domain.ReportHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.reports[r.ID]; !ok || cur.Version != r.Version {
		return repository.ErrStaleState
	}
	r.Version++
	m.reports[r.ID] = r.Clone()
	if h != nil {
		h.ReportID = r.ID
		m.history = append(m.history, *h)
	}
	return nil
}

func (m *memReports) List(_ context.Context, _ repository.ReportFilter) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Report{}
	for _, r := range m.reports {
		out = append(out, *r.Clone())
	}
	return out, nil
}

func (m *memReports) ListByReport(_ context.Context, id int64) ([]domain.ReportHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ReportHistory{}
	for _, h := range m.history {
		if h.ReportID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

type memOffices struct{}

func (memOffices) FindCategoryWithOffice(_ context.Context, id int64) (*domain.CategoryOffice, error) {
	if id != 5 {
		return nil, repository.ErrNotFound
	}
	ext := domain.Office{ID: 10, Name: "Roadworks Ltd", IsExternal: true}
	return &domain.CategoryOffice{
		Category:       domain.Category{ID: 5, Name: "Roads", OfficeID: 3, ExternalOfficeID: &ext.ID},
		Office:         domain.Office{ID: 3, Name: "Public Works"},
		ExternalOffice: &ext,
	}, nil
}

func (memOffices) FindMembership(_ context.Context, userID, officeID int64) (*domain.OfficeMembership, error) {
	if userID == 77 && officeID == 10 {
		return &domain.OfficeMembership{UserID: 77, OfficeID: 10, Role: domain.RoleExternalMaintainer}, nil
	}
	return nil, repository.ErrNotFound
}

func (memOffices) ListStaff(_ context.Context, _ int64) ([]int64, error) {
	return []int64{600}, nil
}

type memUsers struct {
	users map[string]*domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	if _, ok := m.users[u.Username]; ok {
		return repository.ErrConflict
	}
	u.ID = int64(len(m.users) + 1000)
	m.users[u.Username] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*domain.User, error) {
	if u, ok := m.users[name]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type testServer struct {
	app     *fiber.App
	queue   *memQueue
	reports *memReports
}

// principalFromHeader stands in for JWT authentication: "X-Test-User: <id>:<role>".
func principalFromHeader(c *fiber.Ctx) error {
	raw := c.Get("X-Test-User")
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return fiber.NewError(fiber.StatusUnauthorized, "missing test user")
	}
	id, _ := strconv.ParseInt(parts[0], 10, 64)
	auth.WithPrincipal(c, &auth.Principal{User: &domain.User{ID: id, Role: domain.UserRole(parts[1])}})
	return c.Next()
}

func newTestServer(t *testing.T, authMiddleware fiber.Handler) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	queue := &memQueue{seq: map[int64]int64{}, pending: map[int64][]domain.QueueTicket{}}
	reports := &memReports{reports: map[int64]*domain.Report{}}
	users := &memUsers{users: map[string]*domain.User{}}

	queueSvc := service.NewQueueService(service.QueueDependencies{QueueRepo: queue, Dispatcher: dispatcher, Metrics: metrics, Logger: logger, DispatchRetries: 3})
	reportSvc := service.NewReportService(service.ReportDependencies{
		ReportRepo:  reports,
		HistoryRepo: reports,
		OfficeRepo:  memOffices{},
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	authSvc := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, users)
	if authMiddleware == nil {
		authMiddleware = auth.NewAuthMiddleware(authSvc.TokenManager(), users).Handle
	}

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("civic-service", "test", nil),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authSvc),
		Queue:          handlers.NewQueueHandler(queueSvc),
		Reports:        handlers.NewReportsHandler(reportSvc),
		External:       handlers.NewExternalHandler(reportSvc),
		AuthMiddleware: authMiddleware,
	})
	return &testServer{app: app, queue: queue, reports: reports}
}

func (s *testServer) do(t *testing.T, method, path, user, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

const queueOfficer = "900:queue_officer"

func TestQueueEndpoints(t *testing.T) {
	s := newTestServer(t, principalFromHeader)

	status, body := s.do(t, "POST", "/queue/tickets", "", `{"service_id":2}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "S2-1", gjson.Get(body, "data.list_code").String())
	assert.NotEmpty(t, gjson.Get(body, "data.id").String())

	status, body = s.do(t, "POST", "/queue/tickets", "", `{"service_id":0}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", gjson.Get(body, "error.code").String())

	status, body = s.do(t, "GET", "/queue/status?service_ids=2,3", "", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, int64(1), gjson.Get(body, "data.0.pending").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "data.1.pending").Int())

	status, _ = s.do(t, "POST", "/queue/next", "", `{"service_ids":[2]}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = s.do(t, "POST", "/queue/next", queueOfficer, `{"service_ids":[3,2]}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "S2-1", gjson.Get(body, "data.ticket_code").String())

	status, _ = s.do(t, "POST", "/queue/next", queueOfficer, `{"service_ids":[3,2]}`)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestNextCustomerMalformedListIsNoContent(t *testing.T) {
	s := newTestServer(t, principalFromHeader)
	s.do(t, "POST", "/queue/tickets", "", `{"service_id":1}`)

	for _, body := range []string{`{"service_ids":"1"}`, `{}`, `{"service_ids":[]}`} {
		status, _ := s.do(t, "POST", "/queue/next", queueOfficer, body)
		assert.Equal(t, fiber.StatusNoContent, status, body)
	}
	assert.Len(t, s.queue.pending[1], 1)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, principalFromHeader)

	status, body := s.do(t, "POST", "/reports", "500:citizen", `{"title":"Pothole","category_id":5,"latitude":45.07,"longitude":7.68}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	id := gjson.Get(body, "data.id").String()
	assert.Equal(t, "pending", gjson.Get(body, "data.status").String())

	status, _ = s.do(t, "POST", "/reports/"+id+"/review", "500:citizen", `{"action":"accept"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, "POST", "/reports/"+id+"/review", "601:public_relations_officer", `{"action":"accept"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "assigned", gjson.Get(body, "data.status").String())
	assert.Equal(t, int64(3), gjson.Get(body, "data.assigned_office_id").Int())

	status, body = s.do(t, "POST", "/reports/"+id+"/review", "601:public_relations_officer", `{"action":"accept"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", gjson.Get(body, "error.code").String())

	status, body = s.do(t, "POST", "/reports/"+id+"/external-assignment", "600:technical_officer", `{"maintainer_id":77}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.True(t, gjson.Get(body, "data.assigned_external").Bool())

	status, body = s.do(t, "POST", "/external/reports/"+id+"/start", "78:external_maintainer", "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", gjson.Get(body, "error.code").String())

	status, body = s.do(t, "PATCH", "/external/reports/"+id+"/status", "77:external_maintainer", `{"status":"resolved"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "resolved", gjson.Get(body, "data.status").String())

	status, body = s.do(t, "GET", "/reports/"+id+"/history", "600:technical_officer", "")
	require.Equal(t, fiber.StatusOK, status, body)
	actions := gjson.Get(body, "data.#.action").Array()
	require.Len(t, actions, 4)
	assert.Equal(t, "SUBMITTED", actions[0].String())
	assert.Equal(t, "EXTERNAL_STATUS_CHANGE", actions[3].String())
}

func TestReportErrors(t *testing.T) {
	s := newTestServer(t, principalFromHeader)

	status, body := s.do(t, "GET", "/reports/99", "600:technical_officer", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", gjson.Get(body, "error.code").String())

	status, _ = s.do(t, "GET", "/reports/abc", "600:technical_officer", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, "POST", "/reports", "500:citizen", `{"title":"","category_id":5}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "required", gjson.Get(body, "error.details.fields.Title").String())
}

func TestLoginAndBearerToken(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, "POST", "/auth/register", "", `{"username":"alice","email":"alice@example.com","password":"password1"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "citizen", gjson.Get(body, "data.user.role").String())

	status, _ = s.do(t, "POST", "/auth/login", "", `{"username":"alice","password":"wrong-password"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = s.do(t, "POST", "/auth/login", "", `{"username":"alice","password":"password1"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	token := gjson.Get(body, "data.token").String()
	require.NotEmpty(t, token)

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", gjson.GetBytes(raw, "data.username").String())

	status, _ = s.do(t, "GET", "/auth/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, principalFromHeader)

	status, body := s.do(t, "GET", "/health/ready", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", gjson.Get(body, "status").String())

	s.do(t, "POST", "/queue/tickets", "", `{"service_id":4}`)
	status, body = s.do(t, "GET", "/metrics/snapshot", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), gjson.Get(body, "tickets_issued.4").Int())

	status, body = s.do(t, "GET", "/metrics", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `civic_queue_tickets_issued_total{service_id="4"} 1`)
}
