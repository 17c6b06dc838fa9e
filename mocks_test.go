package membership_test

import (
	"context"
	"database/sql"
	"strings"
	"time"

	membership "github.com/goliatone/go-membership"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testLogger swallows output so handler tests stay quiet.
type testLogger struct{}

func (testLogger) Debug(format string, args ...any) {}
func (testLogger) Info(format string, args ...any)  {}
func (testLogger) Warn(format string, args ...any)  {}
func (testLogger) Error(format string, args ...any) {}

// captureSink records activity events for assertions.
type captureSink struct {
	events []membership.ActivityEvent
}

func (c *captureSink) Record(_ context.Context, event membership.ActivityEvent) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) has(eventType membership.ActivityEventType) bool {
	for _, event := range c.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

// testIdentity is a plain value implementation of membership.Identity.
type testIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }
func (t testIdentity) Role() string     { return t.role }

// MockIdentityProvider implements membership.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (membership.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(membership.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (membership.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(membership.Identity)
	return identity, args.Error(1)
}

// MockMailer implements membership.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendInvitation(ctx context.Context, inv *membership.Invitation, acceptURL string) error {
	args := m.Called(ctx, inv, acceptURL)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	args := m.Called(ctx, email, resetURL)
	return args.Error(0)
}

// fakeRepo is an in-memory RepositoryManager. The embedded repository
// interfaces are left nil: only the methods the code under test reaches are
// overridden, anything else panics loudly.
type fakeRepo struct {
	users          *fakeUsers
	nodes          *fakeNodes
	members        *fakeMembers
	invitations    *fakeInvitations
	sessions       *fakeSessions
	passwordResets *fakePasswordResets
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: &fakeUsers{
			byEmail:    map[string]*membership.User{},
			byID:       map[string]*membership.User{},
			byUsername: map[string]*membership.User{},
		},
		nodes: &fakeNodes{
			byID:       map[uuid.UUID]*membership.Node{},
			byLeaderID: map[uuid.UUID]*membership.Node{},
		},
		members: &fakeMembers{
			byUserID: map[uuid.UUID]*membership.Member{},
			byNodeID: map[uuid.UUID][]*membership.Member{},
		},
		invitations: &fakeInvitations{
			byEmail: map[string]*membership.Invitation{},
		},
		sessions: &fakeSessions{
			byToken: map[string]*membership.Session{},
		},
		passwordResets: &fakePasswordResets{
			byID: map[string]*membership.PasswordReset{},
		},
	}
}

func (r *fakeRepo) Validate() error { return nil }
func (r *fakeRepo) MustValidate()   {}

func (r *fakeRepo) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (r *fakeRepo) Users() membership.Users             { return r.users }
func (r *fakeRepo) Nodes() membership.Nodes             { return r.nodes }
func (r *fakeRepo) Members() membership.Members         { return r.members }
func (r *fakeRepo) Invitations() membership.Invitations { return r.invitations }
func (r *fakeRepo) Sessions() membership.Sessions       { return r.sessions }

func (r *fakeRepo) PasswordResets() repository.Repository[*membership.PasswordReset] {
	return r.passwordResets
}

var _ membership.RepositoryManager = (*fakeRepo)(nil)

type fakeUsers struct {
	membership.Users

	byEmail    map[string]*membership.User
	byID       map[string]*membership.User
	byUsername map[string]*membership.User

	resetPasswords map[uuid.UUID]string
	createErr      error
}

func (f *fakeUsers) add(user *membership.User) {
	f.byEmail[strings.ToLower(user.Email)] = user
	f.byID[user.ID.String()] = user
	f.byUsername[user.Username] = user
}

func (f *fakeUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*membership.User, error) {
	if user, ok := f.byEmail[strings.ToLower(identifier)]; ok {
		return user, nil
	}
	if user, ok := f.byID[identifier]; ok {
		return user, nil
	}
	if user, ok := f.byUsername[identifier]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeUsers) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return f.EmailExists(ctx, email)
}

func (f *fakeUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, ok := f.byUsername[username]
	return ok, nil
}

func (f *fakeUsers) UsernameExistsTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	return f.UsernameExists(ctx, username)
}

func (f *fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *membership.User, criteria ...repository.InsertCriteria) (*membership.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.add(record)
	return record, nil
}

func (f *fakeUsers) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role membership.Role) (*membership.User, error) {
	user, ok := f.byID[id.String()]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	user.Role = role
	return user, nil
}

func (f *fakeUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	user, ok := f.byID[id.String()]
	if !ok {
		return repository.NewRecordNotFound()
	}
	user.PasswordHash = passwordHash
	if f.resetPasswords == nil {
		f.resetPasswords = map[uuid.UUID]string{}
	}
	f.resetPasswords[id] = passwordHash
	return nil
}

type fakeNodes struct {
	membership.Nodes

	byID       map[uuid.UUID]*membership.Node
	byLeaderID map[uuid.UUID]*membership.Node
	createErr  error
}

func (f *fakeNodes) add(node *membership.Node) {
	f.byID[node.ID] = node
	f.byLeaderID[node.LeaderID] = node
}

func (f *fakeNodes) GetByNodeID(ctx context.Context, id uuid.UUID) (*membership.Node, error) {
	node, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return node, nil
}

func (f *fakeNodes) GetByNodeIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*membership.Node, error) {
	return f.GetByNodeID(ctx, id)
}

func (f *fakeNodes) GetByLeaderID(ctx context.Context, leaderID uuid.UUID) (*membership.Node, error) {
	node, ok := f.byLeaderID[leaderID]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return node, nil
}

func (f *fakeNodes) GetByLeaderIDTx(ctx context.Context, tx bun.IDB, leaderID uuid.UUID) (*membership.Node, error) {
	return f.GetByLeaderID(ctx, leaderID)
}

func (f *fakeNodes) NextSeqTx(ctx context.Context, tx bun.IDB) (int, error) {
	max := 0
	for _, node := range f.byID {
		seq, err := membership.NodeCodeSeq(node.Code)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

func (f *fakeNodes) CreateTx(ctx context.Context, tx bun.IDB, record *membership.Node, criteria ...repository.InsertCriteria) (*membership.Node, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.add(record)
	return record, nil
}

func (f *fakeNodes) AdjustMembersCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error {
	node, ok := f.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}
	node.MembersCount += delta
	return nil
}

func (f *fakeNodes) SetLeaderTx(ctx context.Context, tx bun.IDB, id, leaderID uuid.UUID) (*membership.Node, error) {
	node, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	delete(f.byLeaderID, node.LeaderID)
	node.LeaderID = leaderID
	f.byLeaderID[leaderID] = node
	return node, nil
}

type fakeMembers struct {
	membership.Members

	byUserID  map[uuid.UUID]*membership.Member
	byNodeID  map[uuid.UUID][]*membership.Member
	createErr error
}

func (f *fakeMembers) add(member *membership.Member) {
	f.byUserID[member.UserID] = member
	f.byNodeID[member.NodeID] = append(f.byNodeID[member.NodeID], member)
}

func (f *fakeMembers) GetByUserID(ctx context.Context, userID uuid.UUID) (*membership.Member, error) {
	member, ok := f.byUserID[userID]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return member, nil
}

func (f *fakeMembers) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*membership.Member, error) {
	return f.GetByUserID(ctx, userID)
}

func (f *fakeMembers) NextSeqTx(ctx context.Context, tx bun.IDB, nodeID uuid.UUID) (int, error) {
	max := 0
	for _, member := range f.byNodeID[nodeID] {
		seq, err := membership.MemberCodeSeq(member.MemberCode)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

func (f *fakeMembers) CreateTx(ctx context.Context, tx bun.IDB, record *membership.Member, criteria ...repository.InsertCriteria) (*membership.Member, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.add(record)
	return record, nil
}

func (f *fakeMembers) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role membership.Role) (*membership.Member, error) {
	for _, member := range f.byUserID {
		if member.ID == id {
			member.Role = role
			return member, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

type fakeInvitations struct {
	membership.Invitations

	byEmail     map[string]*membership.Invitation
	transitions []membership.InvitationStatus
	createErr   error
}

func (f *fakeInvitations) add(inv *membership.Invitation) {
	f.byEmail[strings.ToLower(inv.Email)] = inv
}

// get returns the stored row regardless of status, for asserting on
// post-transition state.
func (f *fakeInvitations) get(email string) *membership.Invitation {
	return f.byEmail[strings.ToLower(email)]
}

func (f *fakeInvitations) GetByToken(ctx context.Context, token string) (*membership.Invitation, error) {
	for _, inv := range f.byEmail {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeInvitations) GetPendingByEmail(ctx context.Context, email string) (*membership.Invitation, error) {
	inv, ok := f.byEmail[strings.ToLower(email)]
	if !ok || inv.Status != membership.InvitationPending {
		return nil, repository.NewRecordNotFound()
	}
	return inv, nil
}

func (f *fakeInvitations) GetPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (*membership.Invitation, error) {
	return f.GetPendingByEmail(ctx, email)
}

func (f *fakeInvitations) HasPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	inv, ok := f.byEmail[strings.ToLower(email)]
	return ok && inv.Status == membership.InvitationPending, nil
}

func (f *fakeInvitations) CreateTx(ctx context.Context, tx bun.IDB, record *membership.Invitation, criteria ...repository.InsertCriteria) (*membership.Invitation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.add(record)
	return record, nil
}

func (f *fakeInvitations) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status membership.InvitationStatus, at time.Time) (*membership.Invitation, error) {
	f.transitions = append(f.transitions, status)
	for _, inv := range f.byEmail {
		if inv.ID == id {
			inv.Status = status
			return inv, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

type fakeSessions struct {
	membership.Sessions

	byToken map[string]*membership.Session
}

func (f *fakeSessions) ExistsByToken(ctx context.Context, token string) (bool, error) {
	_, ok := f.byToken[token]
	return ok, nil
}

func (f *fakeSessions) GetByToken(ctx context.Context, token string) (*membership.Session, error) {
	session, ok := f.byToken[token]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return session, nil
}

func (f *fakeSessions) CreateTx(ctx context.Context, tx bun.IDB, record *membership.Session, criteria ...repository.InsertCriteria) (*membership.Session, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.byToken[record.Token] = record
	return record, nil
}

func (f *fakeSessions) DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	for token, session := range f.byToken {
		if session.UserID == userID {
			delete(f.byToken, token)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteByFingerprintTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, fp membership.Fingerprint) error {
	for token, session := range f.byToken {
		if session.UserID == userID && session.IPAddress == fp.IP && session.UserAgent == fp.UserAgent {
			delete(f.byToken, token)
		}
	}
	return nil
}

type fakePasswordResets struct {
	repository.Repository[*membership.PasswordReset]

	byID map[string]*membership.PasswordReset
}

func (f *fakePasswordResets) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*membership.PasswordReset, error) {
	reset, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return reset, nil
}

func (f *fakePasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *membership.PasswordReset, criteria ...repository.InsertCriteria) (*membership.PasswordReset, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
	f.byID[record.ID.String()] = record
	return record, nil
}

func (f *fakePasswordResets) UpdateTx(ctx context.Context, tx bun.IDB, record *membership.PasswordReset, criteria ...repository.UpdateCriteria) (*membership.PasswordReset, error) {
	existing, ok := f.byID[record.ID.String()]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	if record.Status != "" {
		existing.Status = record.Status
	}
	if record.ResetedAt != nil {
		existing.ResetedAt = record.ResetedAt
	}
	return existing, nil
}
