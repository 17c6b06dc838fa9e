package membership

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Members interface {
	repository.Repository[*Member]

	GetByUserID(ctx context.Context, userID uuid.UUID) (*Member, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Member, error)
	ListByNode(ctx context.Context, nodeID uuid.UUID, activeOnly bool) ([]*Member, error)

	// NextSeqTx returns the next per-node member sequence. Sequence 00 is
	// reserved for the leader, regular members start at 01.
	NextSeqTx(ctx context.Context, tx bun.IDB, nodeID uuid.UUID) (int, error)

	CreateTx(ctx context.Context, tx bun.IDB, record *Member, criteria ...repository.InsertCriteria) (*Member, error)
	UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*Member, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status RecordStatus) (*Member, error)
}

type members struct {
	repository.Repository[*Member]
	db *bun.DB
}

var (
	_ Members                        = (*members)(nil)
	_ repository.Repository[*Member] = (*members)(nil)
)

func NewMembersRepository(db *bun.DB) Members {
	repo := repository.NewRepository[*Member](db, repository.ModelHandlers[*Member]{
		NewRecord: func() *Member { return &Member{} },
		GetID: func(m *Member) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Member, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "member_code"
		},
	})

	return &members{
		Repository: repo,
		db:         db,
	}
}

func (a *members) GetByUserID(ctx context.Context, userID uuid.UUID) (*Member, error) {
	return a.GetByUserIDTx(ctx, a.db, userID)
}

func (a *members) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Member, error) {
	record := &Member{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *members) ListByNode(ctx context.Context, nodeID uuid.UUID, activeOnly bool) ([]*Member, error) {
	var records []*Member
	q := a.db.NewSelect().
		Model(&records).
		Relation("User").
		Where("?TableAlias.node_id = ?", nodeID).
		Order("member_code ASC")

	if activeOnly {
		q = q.Where("?TableAlias.status = ?", StatusActive)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *members) NextSeqTx(ctx context.Context, tx bun.IDB, nodeID uuid.UUID) (int, error) {
	var codes []string
	err := tx.NewSelect().
		Model((*Member)(nil)).
		Column("member_code").
		Where("?TableAlias.node_id = ?", nodeID).
		Scan(ctx, &codes)
	if err != nil {
		return 0, err
	}

	return maxMemberSeq(codes) + 1, nil
}

func (a *members) CreateTx(ctx context.Context, tx bun.IDB, record *Member, criteria ...repository.InsertCriteria) (*Member, error) {
	if record != nil {
		if record.Status == "" {
			record.Status = StatusActive
		}
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *members) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role Role) (*Member, error) {
	record := &Member{
		ID:   id,
		Role: role,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *members) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status RecordStatus) (*Member, error) {
	record := &Member{
		ID:     id,
		Status: status,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}
