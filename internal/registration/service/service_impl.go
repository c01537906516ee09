package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	"github.com/unihub/unihub/internal/metrics"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
	pkgdb "github.com/unihub/unihub/pkg/db"
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
	Cfg        config.Config
	Repo       registrationdomain.Repository
	EventRepo  eventdomain.Repository
	IntentRepo intentdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	intentTTL  time.Duration
	repo       registrationdomain.Repository
	eventRepo  eventdomain.Repository
	intentRepo intentdomain.Repository
}

func NewService(p Params) registrationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("registration.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		intentTTL:  time.Duration(p.Cfg.Payments.IntentTTLMinutes) * time.Minute,
		repo:       p.Repo,
		eventRepo:  p.EventRepo,
		intentRepo: p.IntentRepo,
	}
}

// Register admits a user to an event without exceeding its capacity.
// The event row lock serializes concurrent attempts against the same
// event; occupancy is recomputed from live status counts under it.
func (s *Service) Register(ctx context.Context, eventID, userID snowflake.ID) (*registrationdomain.RegisterResult, error) {
	now := s.clock.Now()
	result := &registrationdomain.RegisterResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if event.Capacity != nil {
			active, err := s.repo.CountActive(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if active >= int64(*event.Capacity) {
				return registrationdomain.ErrCapacityReached
			}
		}

		reg := &registrationdomain.EventRegistration{
			ID:        s.genID.Generate(),
			EventID:   eventID,
			UserID:    userID,
			Status:    registrationdomain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// Free events need no settlement; the slot is taken outright.
		if event.TicketPriceCents == 0 {
			reg.Status = registrationdomain.StatusConfirmed
		}

		if err := s.repo.Insert(ctx, tx, reg); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return registrationdomain.ErrAlreadyRegistered
			}
			return err
		}
		result.Registration = reg

		if event.TicketPriceCents == 0 {
			return nil
		}

		regID := reg.ID
		intent, err := intentdomain.NewIntent(s.genID, now, intentdomain.CreateInput{
			UserID:         userID,
			AmountCents:    event.TicketPriceCents,
			Purpose:        intentdomain.PurposeEventTicket,
			RegistrationID: &regID,
			WithOrderCode:  true,
			TTL:            s.intentTTL,
		})
		if err != nil {
			return err
		}
		if err := s.intentRepo.Insert(ctx, tx, intent); err != nil {
			return err
		}
		if err := s.repo.SetPaymentIntent(ctx, tx, reg.ID, intent.ID, now); err != nil {
			return err
		}
		reg.PaymentIntentID = &intent.ID
		result.Intent = intent
		return nil
	})
	if err != nil {
		switch err {
		case registrationdomain.ErrCapacityReached:
			metrics.RegistrationsTotal.WithLabelValues("capacity_reached").Inc()
		case registrationdomain.ErrAlreadyRegistered:
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("admitted").Inc()

	s.log.Info("registration admitted",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
		zap.String("status", string(result.Registration.Status)),
	)
	return result, nil
}

// Cancel is the compensating release: a pending registration moves to
// canceled and its intent is canceled with it, which frees a capacity
// slot on the next admission count.
func (s *Service) Cancel(ctx context.Context, eventID, userID snowflake.ID) error {
	now := s.clock.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := s.repo.FindByEventAndUser(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}

		ok, err := s.repo.Transition(ctx, tx, reg.ID, registrationdomain.StatusPending, registrationdomain.StatusCanceled, now)
		if err != nil {
			return err
		}
		if !ok {
			return registrationdomain.ErrNotPending
		}

		if reg.PaymentIntentID != nil {
			// Best-effort intent cancellation; a settled intent cannot
			// coexist with a pending registration, so the conditional
			// transition either applies or the intent already expired.
			if _, err := s.intentRepo.Transition(ctx, tx, *reg.PaymentIntentID,
				intentdomain.StatusRequiresPayment, intentdomain.StatusCanceled, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, eventID, userID snowflake.ID) (*registrationdomain.EventRegistration, error) {
	return s.repo.FindByEventAndUser(ctx, s.db, eventID, userID)
}
