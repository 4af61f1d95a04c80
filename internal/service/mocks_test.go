package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"keepsake/internal/domain"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
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
	if m.createErr != nil {
		return m.createErr
	}
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
	mu      sync.Mutex
	roles    map[string]map[string]bool
	listErr  error
	grantErr error
	calls    int
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]map[string]bool)}
}

func (m *mockRoleRepo) ListRoles(_ context.Context, userID, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	if m.roles[userID][role] {
		return []string{role}, nil
	}
	return nil, nil
}

func (m *mockRoleRepo) Grant(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return m.grantErr
	}
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

// mockMessageRepo imita la base: asigna id y created_at al insertar.
type mockMessageRepo struct {
	mu        sync.Mutex
	items     map[string]domain.Message
	order     []string
	creates   int
	deletes   int
	createErr error
	listErr   error
	deleteErr map[string]error
	clock     time.Time

	// block, si no es nil, retiene cada llamada hasta que se cierre.
	block chan struct{}
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		items:     make(map[string]domain.Message),
		deleteErr: make(map[string]error),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockMessageRepo) wait() {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (m *mockMessageRepo) Create(_ context.Context, senderName, content string) (domain.Message, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return domain.Message{}, m.createErr
	}
	m.clock = m.clock.Add(time.Minute)
	msg := domain.Message{
		ID:         uuid.NewString(),
		SenderName: senderName,
		Content:    content,
		CreatedAt:  m.clock,
	}
	m.items[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return msg, nil
}

// ListNewestFirst devuelve en orden de insercion; el orden final lo fija el
// servicio.
func (m *mockMessageRepo) ListNewestFirst(_ context.Context) ([]domain.Message, error) {
	m.wait()
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
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func (m *mockMessageRepo) put(msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[msg.ID]; !ok {
		m.order = append(m.order, msg.ID)
	}
	m.items[msg.ID] = msg
}

func (m *mockMessageRepo) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}
