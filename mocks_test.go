package brewy_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

// MockUsers implements brewy.Users. The embedded generic repository covers
// methods the tests never exercise.
type MockUsers struct {
	mock.Mock
	repository.Repository[*brewy.User]
}

func (m *MockUsers) FindByID(ctx context.Context, id uuid.UUID) (*brewy.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*brewy.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) FindByUsername(ctx context.Context, username string) (*brewy.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) IncrementFailedAttempts(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (*brewy.User, error) {
	args := m.Called(ctx, id, threshold, lockedUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) ResetLockout(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) SetLockedUntil(ctx context.Context, id uuid.UUID, lockedUntil time.Time) error {
	args := m.Called(ctx, id, lockedUntil)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) CreateUser(ctx context.Context, record *brewy.User) (*brewy.User, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) CreateUserTx(ctx context.Context, tx bun.IDB, record *brewy.User) (*brewy.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockUsers) HasSuperOwner(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) HasSuperOwnerTx(ctx context.Context, tx bun.IDB) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

// MockOrganizations implements brewy.Organizations.
type MockOrganizations struct {
	mock.Mock
	repository.Repository[*brewy.Organization]
}

func (m *MockOrganizations) FindByID(ctx context.Context, id uuid.UUID) (*brewy.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.Organization), args.Error(1)
}

func (m *MockOrganizations) CreateOrganization(ctx context.Context, record *brewy.Organization) (*brewy.Organization, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.Organization), args.Error(1)
}

func (m *MockOrganizations) CreateOrganizationTx(ctx context.Context, tx bun.IDB, record *brewy.Organization) (*brewy.Organization, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.Organization), args.Error(1)
}

func (m *MockOrganizations) IncrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID, limit int) (*brewy.Organization, error) {
	args := m.Called(ctx, tx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.Organization), args.Error(1)
}

func (m *MockOrganizations) DecrementMemberCount(ctx context.Context, tx bun.IDB, id uuid.UUID) (*brewy.Organization, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.Organization), args.Error(1)
}

// MockRepositoryManager wires the mock repositories together. RunInTx runs
// the callback inline with a zero-value transaction; the repositories under
// test ignore it.
type MockRepositoryManager struct {
	users         *MockUsers
	organizations *MockOrganizations
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:         &MockUsers{},
		organizations: &MockOrganizations{},
	}
}

func (m *MockRepositoryManager) Users() brewy.Users {
	return m.users
}

func (m *MockRepositoryManager) Organizations() brewy.Organizations {
	return m.organizations
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context, bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

// MockLockoutStore implements brewy.LockoutStore.
type MockLockoutStore struct {
	mock.Mock
}

func (m *MockLockoutStore) IncrementFailedAttempts(ctx context.Context, id uuid.UUID, threshold int, lockedUntil time.Time) (*brewy.User, error) {
	args := m.Called(ctx, id, threshold, lockedUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func (m *MockLockoutStore) ResetLockout(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLockoutStore) SetLockedUntil(ctx context.Context, id uuid.UUID, lockedUntil time.Time) error {
	args := m.Called(ctx, id, lockedUntil)
	return args.Error(0)
}

// MockUserLoader implements brewy.UserLoader.
type MockUserLoader struct {
	mock.Mock
}

func (m *MockUserLoader) FindByID(ctx context.Context, id uuid.UUID) (*brewy.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brewy.User), args.Error(1)
}

func timeNowPtr() *time.Time {
	now := time.Now()
	return &now
}

// RecordingSink captures activity events for assertions.
type RecordingSink struct {
	Events []brewy.ActivityEvent
}

func (s *RecordingSink) Record(ctx context.Context, event brewy.ActivityEvent) error {
	s.Events = append(s.Events, event)
	return nil
}

func (s *RecordingSink) EventTypes() []brewy.ActivityEventType {
	types := make([]brewy.ActivityEventType, 0, len(s.Events))
	for _, event := range s.Events {
		types = append(types, event.EventType)
	}
	return types
}
