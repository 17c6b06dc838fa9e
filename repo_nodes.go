package membership

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Nodes interface {
	repository.Repository[*Node]

	GetByCode(ctx context.Context, code string) (*Node, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Node, error)
	GetByNodeID(ctx context.Context, id uuid.UUID) (*Node, error)
	GetByNodeIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Node, error)
	GetByLeaderID(ctx context.Context, leaderID uuid.UUID) (*Node, error)
	GetByLeaderIDTx(ctx context.Context, tx bun.IDB, leaderID uuid.UUID) (*Node, error)
	ListNodes(ctx context.Context, activeOnly bool) ([]*Node, error)

	// NextSeqTx returns the next value of the network-wide node sequence.
	// The sequence is shared across node types: a business node created
	// after civil-society A03 becomes E04.
	NextSeqTx(ctx context.Context, tx bun.IDB) (int, error)

	CreateTx(ctx context.Context, tx bun.IDB, record *Node, criteria ...repository.InsertCriteria) (*Node, error)
	AdjustMembersCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status RecordStatus) (*Node, error)
	SetLeaderTx(ctx context.Context, tx bun.IDB, id, leaderID uuid.UUID) (*Node, error)
}

type nodes struct {
	repository.Repository[*Node]
	db *bun.DB
}

var (
	_ Nodes                        = (*nodes)(nil)
	_ repository.Repository[*Node] = (*nodes)(nil)
)

func NewNodesRepository(db *bun.DB) Nodes {
	repo := repository.NewRepository[*Node](db, repository.ModelHandlers[*Node]{
		NewRecord: func() *Node { return &Node{} },
		GetID: func(n *Node) uuid.UUID {
			if n == nil {
				return uuid.Nil
			}
			return n.ID
		},
		SetID: func(n *Node, id uuid.UUID) {
			if n != nil {
				n.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &nodes{
		Repository: repo,
		db:         db,
	}
}

func (a *nodes) GetByCode(ctx context.Context, code string) (*Node, error) {
	return a.GetByCodeTx(ctx, a.db, code)
}

func (a *nodes) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Node, error) {
	record := &Node{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNodeNotFound.WithMetadata(map[string]any{"code": code})
		}
		return nil, err
	}
	return record, nil
}

func (a *nodes) GetByNodeID(ctx context.Context, id uuid.UUID) (*Node, error) {
	return a.GetByNodeIDTx(ctx, a.db, id)
}

func (a *nodes) GetByNodeIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Node, error) {
	record := &Node{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNodeNotFound.WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *nodes) GetByLeaderID(ctx context.Context, leaderID uuid.UUID) (*Node, error) {
	return a.GetByLeaderIDTx(ctx, a.db, leaderID)
}

func (a *nodes) GetByLeaderIDTx(ctx context.Context, tx bun.IDB, leaderID uuid.UUID) (*Node, error) {
	record := &Node{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.leader_id = ?", leaderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNodeNotFound.WithMetadata(map[string]any{"leader_id": leaderID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *nodes) ListNodes(ctx context.Context, activeOnly bool) ([]*Node, error) {
	var records []*Node
	q := a.db.NewSelect().
		Model(&records).
		Relation("Leader").
		Order("code ASC")

	if activeOnly {
		q = q.Where("?TableAlias.status = ?", StatusActive)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *nodes) NextSeqTx(ctx context.Context, tx bun.IDB) (int, error) {
	var codes []string
	err := tx.NewSelect().
		Model((*Node)(nil)).
		Column("code").
		Scan(ctx, &codes)
	if err != nil {
		return 0, err
	}

	return maxNodeSeq(codes) + 1, nil
}

func (a *nodes) CreateTx(ctx context.Context, tx bun.IDB, record *Node, criteria ...repository.InsertCriteria) (*Node, error) {
	if record != nil {
		record.EnsureStatus()
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *nodes) AdjustMembersCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error {
	_, err := tx.NewUpdate().
		Model((*Node)(nil)).
		Set("members_count = members_count + ?", delta).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *nodes) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status RecordStatus) (*Node, error) {
	record := &Node{
		ID:     id,
		Status: status,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *nodes) SetLeaderTx(ctx context.Context, tx bun.IDB, id, leaderID uuid.UUID) (*Node, error) {
	record := &Node{
		ID:       id,
		LeaderID: leaderID,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}
