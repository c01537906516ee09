package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	escrowdomain "github.com/unihub/unihub/internal/escrow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  escrowdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  escrowdomain.Repository
}

func NewService(p Params) escrowdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("escrow.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, eventID snowflake.ID) (*escrowdomain.Escrow, error) {
	return s.repo.FindByEventID(ctx, s.db, eventID)
}

func (s *Service) Release(ctx context.Context, eventID snowflake.ID) error {
	return s.settle(ctx, eventID, escrowdomain.StatusReleased)
}

func (s *Service) Refund(ctx context.Context, eventID snowflake.ID) error {
	return s.settle(ctx, eventID, escrowdomain.StatusRefunded)
}

func (s *Service) settle(ctx context.Context, eventID snowflake.ID, to escrowdomain.Status) error {
	if _, err := s.repo.FindByEventID(ctx, s.db, eventID); err != nil {
		return err
	}
	ok, err := s.repo.Transition(ctx, s.db, eventID, to, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return escrowdomain.ErrNotHeld
	}
	s.log.Info("escrow settled",
		zap.String("event_id", eventID.String()),
		zap.String("status", string(to)),
	)
	return nil
}
