package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
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
	Repo  intentdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	ttl   time.Duration
	repo  intentdomain.Repository
}

func NewService(p Params) intentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("paymentintent.service"),
		genID: p.GenID,
		clock: p.Clock,
		ttl:   time.Duration(p.Cfg.Payments.IntentTTLMinutes) * time.Minute,
		repo:  p.Repo,
	}
}

func (s *Service) CreateTopUp(ctx context.Context, userID snowflake.ID, amountCents int64) (*intentdomain.PaymentIntent, error) {
	intent, err := intentdomain.NewIntent(s.genID, s.clock.Now(), intentdomain.CreateInput{
		UserID:        userID,
		AmountCents:   amountCents,
		Purpose:       intentdomain.PurposeTopUp,
		WithOrderCode: true,
		TTL:           s.ttl,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, s.db, intent); err != nil {
		return nil, err
	}
	s.log.Info("top-up intent created",
		zap.String("intent_id", intent.ID.String()),
		zap.Int64("amount_cents", intent.AmountCents),
	)
	return intent, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*intentdomain.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.expireIfDue(ctx, intent)
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (*intentdomain.PaymentIntent, error) {
	intent, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent.Status.Terminal() {
		return nil, intentdomain.ErrTerminal
	}

	now := s.clock.Now()
	ok, err := s.repo.Transition(ctx, s.db, intent.ID, intentdomain.StatusRequiresPayment, intentdomain.StatusCanceled, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against settlement or expiry.
		return nil, intentdomain.ErrTerminal
	}
	intent.Status = intentdomain.StatusCanceled
	intent.UpdatedAt = now
	return intent, nil
}

// expireIfDue applies the lazy expiry rule: an intent past its deadline
// and still requires_payment is moved to expired before any caller acts
// on it.
func (s *Service) expireIfDue(ctx context.Context, intent *intentdomain.PaymentIntent) (*intentdomain.PaymentIntent, error) {
	now := s.clock.Now()
	if !intent.ExpiredAt(now) {
		return intent, nil
	}
	if _, err := s.repo.Transition(ctx, s.db, intent.ID, intentdomain.StatusRequiresPayment, intentdomain.StatusExpired, now); err != nil {
		return nil, err
	}
	intent.Status = intentdomain.StatusExpired
	intent.UpdatedAt = now
	return intent, nil
}
