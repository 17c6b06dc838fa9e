package membership

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Invitations interface {
	repository.Repository[*Invitation]

	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetPendingByEmail(ctx context.Context, email string) (*Invitation, error)
	GetPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Invitation, error)
	HasPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)

	CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status InvitationStatus, at time.Time) (*Invitation, error)
}

type invitations struct {
	repository.Repository[*Invitation]
	db *bun.DB
}

var (
	_ Invitations                        = (*invitations)(nil)
	_ repository.Repository[*Invitation] = (*invitations)(nil)
)

func NewInvitationsRepository(db *bun.DB) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(i *Invitation) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Invitation, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &invitations{
		Repository: repo,
		db:         db,
	}
}

func (a *invitations) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	record := &Invitation{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *invitations) GetPendingByEmail(ctx context.Context, email string) (*Invitation, error) {
	return a.GetPendingByEmailTx(ctx, a.db, email)
}

func (a *invitations) GetPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Invitation, error) {
	record := &Invitation{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Where("?TableAlias.status = ?", InvitationPending).
		Order("sent_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *invitations) HasPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return tx.NewSelect().
		Model((*Invitation)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Where("?TableAlias.status = ?", InvitationPending).
		Exists(ctx)
}

func (a *invitations) CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error) {
	if record != nil {
		record.EnsureStatus()
		record.Email = normalizeEmail(record.Email)
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *invitations) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status InvitationStatus, at time.Time) (*Invitation, error) {
	record := &Invitation{
		ID:     id,
		Status: status,
	}

	switch status {
	case InvitationAccepted:
		record.AcceptedAt = &at
	case InvitationExpired, InvitationPending:
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
