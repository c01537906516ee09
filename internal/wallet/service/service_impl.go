package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/metrics"
	walletdomain "github.com/unihub/unihub/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  walletdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  walletdomain.Repository
}

func NewService(p Params) walletdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("wallet.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID) (*walletdomain.Wallet, error) {
	if userID == 0 {
		return nil, walletdomain.ErrInvalidUser
	}
	if err := s.repo.EnsureWallet(ctx, s.db, s.genID.Generate(), userID, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.repo.FindByUserID(ctx, s.db, userID)
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, amountCents int64) error {
	if amountCents <= 0 {
		return walletdomain.ErrInvalidAmount
	}
	return s.adjust(ctx, userID, amountCents)
}

func (s *Service) Debit(ctx context.Context, userID snowflake.ID, amountCents int64) error {
	if amountCents <= 0 {
		return walletdomain.ErrInvalidAmount
	}
	return s.adjust(ctx, userID, -amountCents)
}

func (s *Service) adjust(ctx context.Context, userID snowflake.ID, deltaCents int64) error {
	if userID == 0 {
		return walletdomain.ErrInvalidUser
	}
	if deltaCents == 0 {
		return nil
	}
	now := s.clock.Now()
	if err := s.repo.EnsureWallet(ctx, s.db, s.genID.Generate(), userID, now); err != nil {
		return err
	}
	direction := walletdomain.DirectionIn
	if deltaCents < 0 {
		direction = walletdomain.DirectionOut
	}

	ok, err := s.repo.AdjustBalance(ctx, s.db, userID, deltaCents, now)
	if err != nil {
		return err
	}
	if !ok {
		metrics.WalletAdjustmentsTotal.WithLabelValues(string(direction), "insufficient").Inc()
		return walletdomain.ErrInsufficientBalance
	}
	metrics.WalletAdjustmentsTotal.WithLabelValues(string(direction), "ok").Inc()
	return nil
}
