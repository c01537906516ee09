package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	escrowdomain "github.com/unihub/unihub/internal/escrow/domain"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       eventdomain.Repository
	EscrowRepo escrowdomain.Repository
	QuotaGate  membershipdomain.Gate
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       eventdomain.Repository
	escrowRepo escrowdomain.Repository
	quotaGate  membershipdomain.Gate
}

func NewService(p Params) eventdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("event.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		escrowRepo: p.EscrowRepo,
		quotaGate:  p.QuotaGate,
	}
}

func (s *Service) Create(ctx context.Context, in eventdomain.CreateInput) (*eventdomain.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, eventdomain.ErrInvalidTitle
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return nil, eventdomain.ErrInvalidCapacity
	}
	if in.TicketPriceCents < 0 {
		return nil, eventdomain.ErrInvalidPrice
	}

	now := s.clock.Now()
	event := &eventdomain.Event{
		ID:               s.genID.Generate(),
		HostID:           in.HostID,
		Title:            strings.TrimSpace(in.Title),
		Capacity:         in.Capacity,
		TicketPriceCents: in.TicketPriceCents,
		StartsAt:         in.StartsAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Quota decrement and event insert share the transaction: a failed
	// insert rolls the consumed quota back, a failed decrement commits
	// nothing.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quotaGate.Consume(ctx, tx, in.HostID); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, event); err != nil {
			return err
		}
		return s.escrowRepo.Insert(ctx, tx, &escrowdomain.Escrow{
			ID:              s.genID.Generate(),
			EventID:         event.ID,
			AmountHoldCents: 0,
			Status:          escrowdomain.StatusHeld,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("host_id", in.HostID.String()),
	)
	return event, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*eventdomain.Event, error) {
	return s.repo.FindByID(ctx, s.db, id)
}
