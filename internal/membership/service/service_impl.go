package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
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
	Cfg   config.Config
	Repo  membershipdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	defaultLimit int
	repo         membershipdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("membership.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		defaultLimit: p.Cfg.Payments.DefaultMonthlyEventLimit,
		repo:         p.Repo,
	}
}

func ProvideGate(s *Service) membershipdomain.Gate { return s }

func ProvideService(s *Service) membershipdomain.Service { return s }

func (s *Service) ListPlans(ctx context.Context) ([]membershipdomain.MembershipPlan, error) {
	return s.repo.ListPlans(ctx, s.db)
}

func (s *Service) GetActive(ctx context.Context, userID snowflake.ID) (*membershipdomain.UserMembership, error) {
	return s.repo.FindActiveByUser(ctx, s.db, userID, s.clock.Now())
}

// Consume gates one quota-consuming attempt. Under N concurrent attempts
// against a quota of 1, the conditional decrement guarantees exactly one
// success; the rest see ErrEventLimitReached.
func (s *Service) Consume(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	now := s.clock.Now()

	membership, err := s.repo.FindActiveByUser(ctx, db, userID, now)
	if errors.Is(err, membershipdomain.ErrMembershipNotFound) {
		// Default policy for non-members: a lazily created membership
		// row with no plan and the configured monthly allowance. An
		// expired paid row is demoted to the same policy.
		if err := s.repo.EnsureDefault(ctx, db, s.genID.Generate(), userID, s.defaultLimit, now); err != nil {
			return err
		}
		if _, err := s.repo.Demote(ctx, db, userID, s.defaultLimit, now); err != nil {
			return err
		}
		membership, err = s.repo.FindActiveByUser(ctx, db, userID, now)
	}
	if err != nil {
		return err
	}

	limit := s.defaultLimit
	if membership.PlanID != nil {
		plan, err := s.repo.FindPlanByID(ctx, db, *membership.PlanID)
		if err != nil {
			return err
		}
		limit = plan.MonthlyEventLimit
	}

	if limit == membershipdomain.UnlimitedEvents {
		return nil
	}

	// Lazy monthly rollover, scoped to the reset and separate from the
	// decrement. A lost race here just means another caller granted the
	// month first.
	if membership.ResetDue(now) {
		reset, err := s.repo.ResetQuota(ctx, db, membership.ID, limit, membership.LastResetAt, now)
		if err != nil {
			return err
		}
		if reset {
			s.log.Info("membership quota reset",
				zap.String("user_id", userID.String()),
				zap.Int("quota", limit),
			)
		}
	}

	ok, err := s.repo.ConsumeQuota(ctx, db, membership.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return membershipdomain.ErrEventLimitReached
	}
	return nil
}
