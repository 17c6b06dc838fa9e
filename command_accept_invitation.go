package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// codeRetryAttempts bounds the retry loop around code generation. A
// concurrent acceptance can claim the sequence we computed; the unique
// constraint surfaces that and we recompute on a fresh transaction.
const codeRetryAttempts = 3

// AcceptInvitationMessage redeems an invitation token and provisions the
// invited user, node, and member records in one transaction.
type AcceptInvitationMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`

	Username       string            `json:"username,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	PhoneRegion    string            `json:"phone_region,omitempty"`
	Country        string            `json:"country,omitempty"`
	City           string            `json:"city,omitempty"`
	About          string            `json:"about,omitempty"`
	Degree         string            `json:"degree,omitempty"`
	Postgraduate   string            `json:"postgraduate,omitempty"`
	ExpertiseArea  string            `json:"expertise_area,omitempty"`
	ResearchWork   string            `json:"research_work,omitempty"`
	ProfilePicture string            `json:"profile_picture,omitempty"`
	SocialMedia    map[string]string `json:"social_media,omitempty"`

	OnResponse func(*User, *Member) `json:"-"`
}

func (e AcceptInvitationMessage) Type() string { return "invitation.accept" }

// Validate will run validation rules
func (e AcceptInvitationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 200)),
	)
}

// AcceptInvitationHandler turns a pending invitation into a live account.
// Role decides the shape of the write: admins get a bare user row, node
// leaders get a freshly coded node plus the leader member slot, members
// join the inviting node with the next member code.
type AcceptInvitationHandler struct {
	repo         RepositoryManager
	tokens       TokenService
	states       InvitationStateMachine
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

func NewAcceptInvitationHandler(repo RepositoryManager, tokens TokenService, states InvitationStateMachine) *AcceptInvitationHandler {
	return &AcceptInvitationHandler{
		repo:         repo,
		tokens:       tokens,
		states:       states,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (h *AcceptInvitationHandler) WithLogger(logger Logger) *AcceptInvitationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AcceptInvitationHandler) WithActivitySink(sink ActivitySink) *AcceptInvitationHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *AcceptInvitationHandler) WithClock(clock func() time.Time) *AcceptInvitationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *AcceptInvitationHandler) Execute(ctx context.Context, event AcceptInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation acceptance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AcceptInvitationHandler) execute(ctx context.Context, event AcceptInvitationMessage) error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return event.Validate()
	}, "invalid acceptance payload"); err != nil {
		return err
	}

	claims, err := h.tokens.ValidateInvitation(event.Token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.expireStale(ctx, claims.Email); err != nil {
		return err
	}

	var user *User
	var member *Member

	var lastErr error
	for attempt := 0; attempt < codeRetryAttempts; attempt++ {
		user, member = nil, nil
		lastErr = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			user, member, err = h.provision(ctx, tx, claims, event)
			return err
		})
		if lastErr == nil {
			break
		}
		if !isUniqueViolation(lastErr) {
			break
		}
		h.logger.Warn("code collision on acceptance attempt %d, retrying", attempt+1)
	}

	if lastErr != nil {
		var richErr *goerrors.Error
		if goerrors.As(lastErr, &richErr) {
			return richErr
		}
		return goerrors.Wrap(lastErr, goerrors.CategoryInternal, "invitation acceptance transaction failed")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserProvisioned,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"role": string(user.Role),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(user, member)
	}

	return nil
}

// expireStale flips a lapsed pending invitation in its own transaction.
// The acceptance transaction aborts on a lapsed row, so a status write made
// inside it would never commit.
func (h *AcceptInvitationHandler) expireStale(ctx context.Context, email string) error {
	invitation, err := h.repo.Invitations().GetPendingByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvitationInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invitation")
	}

	if !invitation.IsExpired(h.now()) {
		return nil
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, terr := h.states.TransitionTx(ctx, tx, ActorRef{Type: "system"}, invitation, InvitationExpired)
		return terr
	})
	if err != nil {
		h.logger.Warn("could not mark invitation expired: %v", err)
	}

	return ErrInvitationInvalid
}

func (h *AcceptInvitationHandler) provision(ctx context.Context, tx bun.Tx, claims *InvitationClaims, event AcceptInvitationMessage) (*User, *Member, error) {
	now := h.now()

	invitation, err := h.repo.Invitations().GetPendingByEmailTx(ctx, tx, claims.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrInvitationInvalid
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invitation")
	}

	if invitation.IsExpired(now) {
		// the pre-flight check already flipped the row; writing here would
		// be rolled back with the rest of the aborted transaction
		return nil, nil, ErrInvitationInvalid
	}

	taken, err := h.repo.Users().EmailExistsTx(ctx, tx, claims.Email)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing users")
	}
	if taken {
		return nil, nil, ErrEmailTaken
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	username, err := h.resolveUsername(ctx, tx, event.Username, claims.Email)
	if err != nil {
		return nil, nil, err
	}

	phone, err := NormalizePhone(event.Phone, event.PhoneRegion)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number")
	}

	user := &User{
		Email:          strings.ToLower(claims.Email),
		Username:       username,
		PasswordHash:   hash,
		Name:           claims.Name,
		Role:           claims.RoleType,
		Status:         StatusActive,
		Phone:          phone,
		Country:        event.Country,
		City:           event.City,
		About:          event.About,
		Degree:         event.Degree,
		Postgraduate:   event.Postgraduate,
		ExpertiseArea:  event.ExpertiseArea,
		ResearchWork:   event.ResearchWork,
		ProfilePicture: event.ProfilePicture,
		SocialMedia:    event.SocialMedia,
	}
	if id, err := hashid.NewUUID(claims.Email); err == nil {
		user.ID = id
	}

	if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	var member *Member

	switch claims.RoleType {
	case RoleAdmin:
		// no node involvement
	case RoleNodeLeader:
		member, err = h.provisionLeader(ctx, tx, user, invitation)
	case RoleMember:
		member, err = h.provisionMember(ctx, tx, user, invitation)
	default:
		err = ErrInvalidRole.WithMetadata(map[string]any{
			"role": string(claims.RoleType),
		})
	}
	if err != nil {
		return nil, nil, err
	}

	if _, err := h.states.TransitionTx(ctx, tx, ActorRef{ID: user.ID.String(), Type: "user"}, invitation, InvitationAccepted); err != nil {
		return nil, nil, err
	}

	return user, member, nil
}

// provisionLeader creates the node and seats the leader in the reserved
// member slot.
func (h *AcceptInvitationHandler) provisionLeader(ctx context.Context, tx bun.Tx, user *User, invitation *Invitation) (*Member, error) {
	if invitation.NodeType == nil || !invitation.NodeType.IsValid() {
		return nil, ErrInvalidNodeType
	}

	prefix, err := NodeCodePrefix(*invitation.NodeType)
	if err != nil {
		return nil, err
	}

	seq, err := h.repo.Nodes().NextSeqTx(ctx, tx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compute node sequence")
	}

	node := &Node{
		Code:         FormatNodeCode(prefix, seq),
		Type:         *invitation.NodeType,
		LeaderID:     user.ID,
		MembersCount: 1,
		Status:       StatusActive,
	}
	if node, err = h.repo.Nodes().CreateTx(ctx, tx, node); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create node")
	}

	member := &Member{
		UserID:     user.ID,
		NodeID:     node.ID,
		MemberCode: FormatMemberCode(node.Code, LeaderMemberSeq),
		Role:       RoleNodeLeader,
		Status:     StatusActive,
	}
	if member, err = h.repo.Members().CreateTx(ctx, tx, member); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create leader member")
	}

	return member, nil
}

func (h *AcceptInvitationHandler) provisionMember(ctx context.Context, tx bun.Tx, user *User, invitation *Invitation) (*Member, error) {
	if invitation.NodeID == nil {
		return nil, ErrNodeNotFound
	}

	node, err := h.repo.Nodes().GetByNodeIDTx(ctx, tx, *invitation.NodeID)
	if err != nil {
		return nil, err
	}

	seq, err := h.repo.Members().NextSeqTx(ctx, tx, node.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compute member sequence")
	}

	member := &Member{
		UserID:     user.ID,
		NodeID:     node.ID,
		MemberCode: FormatMemberCode(node.Code, seq),
		Role:       RoleMember,
		Status:     StatusActive,
	}
	if member, err = h.repo.Members().CreateTx(ctx, tx, member); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create member")
	}

	if err := h.repo.Nodes().AdjustMembersCountTx(ctx, tx, node.ID, 1); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update member count")
	}

	return member, nil
}

// resolveUsername uses the supplied username or derives one from the email
// local part, appending a numeric suffix until it is free.
func (h *AcceptInvitationHandler) resolveUsername(ctx context.Context, tx bun.Tx, username, email string) (string, error) {
	base := getUsername(username, email)
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := h.repo.Users().UsernameExistsTx(ctx, tx, candidate)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}

func (h *AcceptInvitationHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}

	sink := normalizeActivitySink(h.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
