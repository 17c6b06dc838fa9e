package membership

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateInvitationMessage asks for a new invitation to be issued.
type CreateInvitationMessage struct {
	Actor      *Actor     `json:"-"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	RoleType   Role       `json:"role_type"`
	NodeType   NodeType   `json:"node_type,omitempty"`
	NodeID     uuid.UUID  `json:"node_id,omitempty"`
	OnResponse func(*Invitation) `json:"-"`
}

func (e CreateInvitationMessage) Type() string { return "invitation.create" }

// Validate will run validation rules
func (e CreateInvitationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 200), is.Email),
		validation.Field(&e.RoleType, validation.Required),
	)
}

// CreateInvitationHandler gates, persists, and dispatches invitations.
// Admins invite admins and node leaders; node leaders invite members into
// the node they lead, resolved server-side so the payload cannot point at
// someone else's node.
type CreateInvitationHandler struct {
	repo         RepositoryManager
	tokens       TokenService
	mailer       Mailer
	config       Config
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

func NewCreateInvitationHandler(repo RepositoryManager, tokens TokenService, mailer Mailer, cfg Config) *CreateInvitationHandler {
	return &CreateInvitationHandler{
		repo:         repo,
		tokens:       tokens,
		mailer:       mailer,
		config:       cfg,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (h *CreateInvitationHandler) WithLogger(logger Logger) *CreateInvitationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateInvitationHandler) WithActivitySink(sink ActivitySink) *CreateInvitationHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *CreateInvitationHandler) WithClock(clock func() time.Time) *CreateInvitationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *CreateInvitationHandler) Execute(ctx context.Context, event CreateInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateInvitationHandler) execute(ctx context.Context, event CreateInvitationMessage) error {
	if err := AuthorizeInvite(event.Actor, event.RoleType); err != nil {
		return err
	}

	if err := goerrors.ValidateWithOzzo(func() error {
		return event.Validate()
	}, "invalid invitation payload"); err != nil {
		return err
	}

	if event.RoleType == RoleNodeLeader && !event.NodeType.IsValid() {
		return ErrInvalidNodeType.WithMetadata(map[string]any{
			"node_type": string(event.NodeType),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	invitation := &Invitation{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.repo.Users().EmailExistsTx(ctx, tx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing users")
		}
		if taken {
			return ErrEmailTaken
		}

		pending, err := h.repo.Invitations().HasPendingByEmailTx(ctx, tx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check pending invitations")
		}
		if pending {
			return ErrInvitationPending
		}

		now := h.now()
		expires := now.Add(time.Duration(h.config.GetInvitationExpiration()) * 24 * time.Hour)

		invitation.ID = uuid.New()
		invitation.Name = event.Name
		invitation.Email = event.Email
		invitation.RoleType = event.RoleType
		invitation.Status = InvitationPending
		invitation.SentAt = &now
		invitation.ExpiresAt = &expires

		switch event.RoleType {
		case RoleAdmin:
			// admins join without a node
		case RoleNodeLeader:
			nt := event.NodeType
			invitation.NodeType = &nt
		case RoleMember:
			node, err := h.repo.Nodes().GetByLeaderIDTx(ctx, tx, event.Actor.ID)
			if err != nil {
				return err
			}
			invitation.NodeID = &node.ID
		default:
			return ErrInvalidRole.WithMetadata(map[string]any{
				"role": string(event.RoleType),
			})
		}

		token, err := h.tokens.IssueInvitation(invitation)
		if err != nil {
			return err
		}
		invitation.Token = token

		if invitation, err = h.repo.Invitations().CreateTx(ctx, tx, invitation); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create invitation")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invitation transaction failed")
	}

	h.dispatchEmail(ctx, invitation)

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventInvitationSent,
		Actor:     actorRefFrom(event.Actor),
		Metadata: map[string]any{
			"invitation_id": invitation.ID.String(),
			"role_type":     string(invitation.RoleType),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(invitation)
	}

	return nil
}

// dispatchEmail is best-effort. The row is committed; a failed send only
// costs the recipient a resend.
func (h *CreateInvitationHandler) dispatchEmail(ctx context.Context, inv *Invitation) {
	if h.mailer == nil {
		return
	}

	acceptURL := fmt.Sprintf("%s/invitations/accept?token=%s", h.config.GetFrontendURL(), inv.Token)
	if err := h.mailer.SendInvitation(ctx, inv, acceptURL); err != nil {
		h.logger.Error("failed to send invitation email", "error", err, "email", inv.Email)
	}
}

func (h *CreateInvitationHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}

	sink := normalizeActivitySink(h.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
