package membership

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ReassignLeaderMessage moves node leadership to an existing member.
type ReassignLeaderMessage struct {
	Actor     *Actor    `json:"-"`
	NodeID    uuid.UUID `json:"node_id"`
	NewLeader uuid.UUID `json:"new_leader_id"`

	OnResponse func(*Node) `json:"-"`
}

func (e ReassignLeaderMessage) Type() string { return "node.reassign_leader" }

// Validate will run validation rules
func (e ReassignLeaderMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.NodeID, validation.By(requireUUID)),
		validation.Field(&e.NewLeader, validation.By(requireUUID)),
	)
}

func requireUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_required", "cannot be blank")
	}
	return nil
}

// ReassignLeaderHandler swaps the leader seat of a node. The incoming
// leader must already be a member of that node; member codes stay as they
// were, only roles and the node's leader pointer change.
type ReassignLeaderHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

func NewReassignLeaderHandler(repo RepositoryManager) *ReassignLeaderHandler {
	return &ReassignLeaderHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (h *ReassignLeaderHandler) WithLogger(logger Logger) *ReassignLeaderHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ReassignLeaderHandler) WithActivitySink(sink ActivitySink) *ReassignLeaderHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *ReassignLeaderHandler) Execute(ctx context.Context, event ReassignLeaderMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during leader reassignment",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ReassignLeaderHandler) execute(ctx context.Context, event ReassignLeaderMessage) error {
	if event.Actor == nil || !event.Actor.IsAdmin() {
		return ErrForbidden
	}

	if err := goerrors.ValidateWithOzzo(func() error {
		return event.Validate()
	}, "invalid reassignment payload"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var node *Node

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		node, err = h.repo.Nodes().GetByNodeIDTx(ctx, tx, event.NodeID)
		if err != nil {
			return err
		}

		incoming, err := h.repo.Members().GetByUserIDTx(ctx, tx, event.NewLeader)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrNotNodeMember
			}
			return err
		}
		if incoming.NodeID != node.ID {
			return ErrNotNodeMember.WithMetadata(map[string]any{
				"node_id": node.ID.String(),
				"user_id": event.NewLeader.String(),
			})
		}
		if incoming.UserID == node.LeaderID {
			// already the leader, nothing to do
			return nil
		}

		outgoing, err := h.repo.Members().GetByUserIDTx(ctx, tx, node.LeaderID)
		if err != nil && !repository.IsRecordNotFound(err) {
			return err
		}

		if outgoing != nil {
			if _, err := h.repo.Members().UpdateRoleTx(ctx, tx, outgoing.ID, RoleMember); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not demote outgoing leader")
			}
			if _, err := h.repo.Users().UpdateRoleTx(ctx, tx, outgoing.UserID, RoleMember); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not demote outgoing leader user")
			}
		}

		if _, err := h.repo.Members().UpdateRoleTx(ctx, tx, incoming.ID, RoleNodeLeader); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not promote incoming leader")
		}
		if _, err := h.repo.Users().UpdateRoleTx(ctx, tx, incoming.UserID, RoleNodeLeader); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not promote incoming leader user")
		}

		if node, err = h.repo.Nodes().SetLeaderTx(ctx, tx, node.ID, incoming.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update node leader")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "leader reassignment transaction failed")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLeaderReassigned,
		Actor:     actorRefFrom(event.Actor),
		Metadata: map[string]any{
			"node_id":       event.NodeID.String(),
			"new_leader_id": event.NewLeader.String(),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(node)
	}

	return nil
}

func (h *ReassignLeaderHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}

	sink := normalizeActivitySink(h.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
