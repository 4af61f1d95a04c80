package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/letter"
	"keepsake/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

type mockRoleRepo struct {
	mu    sync.Mutex
	roles map[string]map[string]bool
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]map[string]bool)}
}

func (m *mockRoleRepo) ListRoles(_ context.Context, userID, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID][role] {
		return []string{role}, nil
	}
	return nil, nil
}

func (m *mockRoleRepo) Grant(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID] == nil {
		m.roles[userID] = make(map[string]bool)
	}
	m.roles[userID][role] = true
	return nil
}

func (m *mockRoleRepo) revoke(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles[userID], role)
}

type mockMessageRepo struct {
	mu        sync.Mutex
	items     map[string]domain.Message
	order     []string
	clock     time.Time
	createErr error
	listErr   error
	deleteErr error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		items: make(map[string]domain.Message),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockMessageRepo) Create(_ context.Context, senderName, content string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return domain.Message{}, m.createErr
	}
	m.clock = m.clock.Add(time.Minute)
	msg := domain.Message{ID: uuid.NewString(), SenderName: senderName, Content: content, CreatedAt: m.clock}
	m.items[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return msg, nil
}

func (m *mockMessageRepo) ListNewestFirst(_ context.Context) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Message, 0, len(m.items))
	for _, id := range m.order {
		if msg, ok := m.items[id]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.items, id)
	return nil
}

// testApp arma el router completo sobre almacenes en memoria.
type testApp struct {
	router   *gin.Engine
	auth     *service.AuthService
	users    *service.UserService
	roles    *mockRoleRepo
	messages *mockMessageRepo
	admin    *AdminHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	roles := newMockRoleRepo()
	messages := newMockMessageRepo()
	users := service.NewUserService(logger, newMockUserRepo(), roles)
	jwtSvc := service.NewJWTService("secret", 15*time.Minute, time.Hour)
	auth := service.NewAuthService(logger, users, roles, jwtSvc, service.NewMemorySessionStore(), service.NewMemorySessionEvents(), service.NewLoginLimiter(time.Minute, 3))
	gate := service.NewAdminGate(logger, auth)
	moderation := service.NewModerationService(logger, messages)
	submissions := service.NewSubmissionService(logger, messages)
	visits := service.NewVisitService(logger, service.NewMemoryVisitStore(time.Hour), letter.New(nil), submissions)

	adminH := NewAdminHandler(logger, gate, moderation)
	router := NewRouter(logger, NewVisitHandler(logger, visits), NewAuthHandler(logger, auth), adminH, auth, gate)

	return &testApp{
		router:   router,
		auth:     auth,
		users:    users,
		roles:    roles,
		messages: messages,
		admin:    adminH,
	}
}

// login crea la cuenta y devuelve el par de tokens.
func (a *testApp) login(t *testing.T, email string, admin bool) (domain.Session, service.TokenPair) {
	t.Helper()
	ctx := context.Background()
	var err error
	if admin {
		_, err = a.users.CreateAdmin(ctx, email, "correct horse")
	} else {
		_, err = a.users.CreateUser(ctx, email, "correct horse")
	}
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	session, pair, err := a.auth.SignIn(ctx, email, "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return session, pair
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return performAuthedRequest(r, method, path, "", body)
}

func performAuthedRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}
