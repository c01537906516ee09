package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/unihub/unihub/internal/clock"
	"github.com/unihub/unihub/internal/config"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"github.com/unihub/unihub/internal/metrics"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
	settlementdomain "github.com/unihub/unihub/internal/settlement/domain"
	walletdomain "github.com/unihub/unihub/internal/wallet/domain"
	pkgdb "github.com/unihub/unihub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errReplayDetected aborts the settlement transaction when the unique
// (provider, provider_ref) insert loses the race after the pre-check.
var errReplayDetected = errors.New("settlement_replay_detected")

// errTerminalIntent aborts when the intent left requires_payment before
// this delivery could apply.
var errTerminalIntent = errors.New("settlement_intent_terminal")

// errExpiredIntent aborts when the intent passed its deadline. The
// expiry transition itself must commit outside the aborting transaction.
var errExpiredIntent = errors.New("settlement_intent_expired")

// errAmountMismatch aborts when the notified amount does not match the
// intent. The delivery is acknowledged but never applied.
var errAmountMismatch = errors.New("settlement_amount_mismatch")

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Cfg            config.Config
	IntentRepo     intentdomain.Repository
	WalletRepo     walletdomain.Repository
	RegRepo        registrationdomain.Repository
	MembershipRepo membershipdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	checksumKey    string
	intentRepo     intentdomain.Repository
	walletRepo     walletdomain.Repository
	regRepo        registrationdomain.Repository
	membershipRepo membershipdomain.Repository
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("settlement.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		checksumKey:    p.Cfg.PayOS.ChecksumKey,
		intentRepo:     p.IntentRepo,
		walletRepo:     p.WalletRepo,
		regRepo:        p.RegRepo,
		membershipRepo: p.MembershipRepo,
	}
}

func (s *Service) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (settlementdomain.Result, error) {
	if !settlementdomain.VerifySignature(s.checksumKey, rawBody, strings.TrimSpace(signature)) {
		return "", settlementdomain.ErrInvalidSignature
	}

	var payload settlementdomain.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return "", settlementdomain.ErrInvalidPayload
	}
	payload.Reference = strings.TrimSpace(payload.Reference)
	if payload.OrderCode == 0 || payload.Reference == "" || payload.Amount <= 0 {
		return "", settlementdomain.ErrInvalidPayload
	}
	if !payload.Success {
		// Failure notifications carry no effect to apply; the intent
		// expires on its own if the user never retries.
		return settlementdomain.ResultIgnored, nil
	}

	result, err := s.apply(ctx, &payload, rawBody)
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(settlementdomain.Provider, "error").Inc()
		return "", err
	}
	metrics.SettlementsTotal.WithLabelValues(settlementdomain.Provider, string(result)).Inc()
	return result, nil
}

// apply runs settlement step 4 in one transaction: intent transition,
// ledger insert, wallet credit and registration confirmation commit
// together or not at all.
func (s *Service) apply(ctx context.Context, payload *settlementdomain.WebhookPayload, rawBody []byte) (settlementdomain.Result, error) {
	now := s.clock.Now()

	var expiredID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		intent, err := s.intentRepo.FindByOrderCodeForUpdate(ctx, tx, payload.OrderCode)
		if err != nil {
			return err
		}

		// Replay pre-check; the unique constraint on insert below
		// closes the race between this check and the insert.
		existing, err := s.walletRepo.FindTransactionByProviderRef(ctx, tx, settlementdomain.Provider, payload.Reference)
		if err != nil {
			return err
		}
		if existing != nil {
			return errReplayDetected
		}

		if intent.ExpiredAt(now) {
			expiredID = intent.ID
			return errExpiredIntent
		}
		if intent.Status.Terminal() {
			return errTerminalIntent
		}
		if payload.Amount != intent.AmountCents {
			return errAmountMismatch
		}

		ok, err := s.intentRepo.Transition(ctx, tx, intent.ID,
			intentdomain.StatusRequiresPayment, intentdomain.StatusSucceeded, now)
		if err != nil {
			return err
		}
		if !ok {
			return errTerminalIntent
		}

		txn, err := s.recordSettlement(ctx, tx, intent, payload, rawBody, now)
		if err != nil {
			return err
		}

		return s.applyPurpose(ctx, tx, intent, txn, now)
	})

	if errors.Is(err, errExpiredIntent) {
		// The rejecting transaction rolled back; the expiry transition
		// commits on its own so the intent does not stay open forever.
		if _, terr := s.intentRepo.Transition(ctx, s.db, expiredID,
			intentdomain.StatusRequiresPayment, intentdomain.StatusExpired, now); terr != nil {
			return "", terr
		}
		return settlementdomain.ResultIgnored, nil
	}
	if errors.Is(err, errAmountMismatch) {
		s.log.Warn("settlement amount mismatch",
			zap.Int64("order_code", payload.OrderCode),
			zap.Int64("notified_cents", payload.Amount),
		)
		return settlementdomain.ResultIgnored, nil
	}
	if errors.Is(err, errReplayDetected) || errors.Is(err, errTerminalIntent) {
		return settlementdomain.ResultIgnored, nil
	}
	if err != nil {
		return "", err
	}

	s.log.Info("settlement applied",
		zap.Int64("order_code", payload.OrderCode),
		zap.String("provider_ref", payload.Reference),
		zap.Int64("amount_cents", payload.Amount),
	)
	return settlementdomain.ResultOK, nil
}

// recordSettlement credits the payer's wallet and writes the immutable
// gateway transaction carrying the idempotency key.
func (s *Service) recordSettlement(
	ctx context.Context,
	tx *gorm.DB,
	intent *intentdomain.PaymentIntent,
	payload *settlementdomain.WebhookPayload,
	rawBody []byte,
	now time.Time,
) (*walletdomain.Transaction, error) {

	if err := s.walletRepo.EnsureWallet(ctx, tx, s.genID.Generate(), intent.UserID, now); err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.FindByUserID(ctx, tx, intent.UserID)
	if err != nil {
		return nil, err
	}

	provider := settlementdomain.Provider
	ref := payload.Reference
	txn := &walletdomain.Transaction{
		ID:          s.genID.Generate(),
		WalletID:    wallet.ID,
		AmountCents: payload.Amount,
		Direction:   walletdomain.DirectionIn,
		Method:      walletdomain.MethodGateway,
		Status:      walletdomain.TransactionSucceeded,
		Provider:    &provider,
		ProviderRef: &ref,
		Payload:     datatypes.JSON(rawBody),
		CreatedAt:   now,
	}
	if err := s.walletRepo.InsertTransaction(ctx, tx, txn); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, errReplayDetected
		}
		return nil, err
	}

	ok, err := s.walletRepo.AdjustBalance(ctx, tx, intent.UserID, payload.Amount, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Credits cannot fail the non-negativity predicate.
		return nil, walletdomain.ErrWalletNotFound
	}
	return txn, nil
}

func (s *Service) applyPurpose(
	ctx context.Context,
	tx *gorm.DB,
	intent *intentdomain.PaymentIntent,
	txn *walletdomain.Transaction,
	now time.Time,
) error {

	switch intent.Purpose {
	case intentdomain.PurposeEventTicket:
		if intent.RegistrationID == nil {
			return intentdomain.ErrMissingRegistration
		}
		ok, err := s.regRepo.Confirm(ctx, tx, *intent.RegistrationID, txn.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// A settled ticket must confirm its registration; anything
			// else is a contradiction worth failing the delivery over.
			return registrationdomain.ErrNotPending
		}
		return nil

	case intentdomain.PurposeMembership:
		if intent.MembershipPlanID == nil {
			return intentdomain.ErrInvalidPurpose
		}
		plan, err := s.membershipRepo.FindPlanByID(ctx, tx, *intent.MembershipPlanID)
		if err != nil {
			return err
		}
		end := now.AddDate(0, plan.DurationMonths, 0)
		quota := plan.MonthlyEventLimit
		if quota == membershipdomain.UnlimitedEvents {
			quota = 0
		}
		return s.membershipRepo.Activate(ctx, tx, s.genID.Generate(), intent.UserID, plan.ID, now, end, quota)

	default:
		// Top-ups end at the wallet credit.
		return nil
	}
}

func (s *Service) ConfirmWithWallet(ctx context.Context, intentID snowflake.ID) (*intentdomain.PaymentIntent, error) {
	now := s.clock.Now()

	var out *intentdomain.PaymentIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		intent, err := s.intentRepo.FindByID(ctx, tx, intentID)
		if err != nil {
			return err
		}
		// A wallet cannot fund its own top-up.
		if intent.Purpose == intentdomain.PurposeTopUp || intent.Purpose == intentdomain.PurposeWalletTopUp {
			return intentdomain.ErrInvalidPurpose
		}
		if intent.ExpiredAt(now) {
			return intentdomain.ErrExpired
		}
		if intent.Status.Terminal() {
			return intentdomain.ErrTerminal
		}

		ok, err := s.walletRepo.AdjustBalance(ctx, tx, intent.UserID, -intent.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return walletdomain.ErrInsufficientBalance
		}

		ok, err = s.intentRepo.Transition(ctx, tx, intent.ID,
			intentdomain.StatusRequiresPayment, intentdomain.StatusSucceeded, now)
		if err != nil {
			return err
		}
		if !ok {
			return intentdomain.ErrTerminal
		}

		wallet, err := s.walletRepo.FindByUserID(ctx, tx, intent.UserID)
		if err != nil {
			return err
		}
		txn := &walletdomain.Transaction{
			ID:          s.genID.Generate(),
			WalletID:    wallet.ID,
			AmountCents: intent.AmountCents,
			Direction:   walletdomain.DirectionOut,
			Method:      walletdomain.MethodWallet,
			Status:      walletdomain.TransactionSucceeded,
			CreatedAt:   now,
		}
		if err := s.walletRepo.InsertTransaction(ctx, tx, txn); err != nil {
			return err
		}

		if err := s.applyPurpose(ctx, tx, intent, txn, now); err != nil {
			return err
		}

		intent.Status = intentdomain.StatusSucceeded
		intent.UpdatedAt = now
		out = intent
		return nil
	})
	if errors.Is(err, intentdomain.ErrExpired) {
		// Same rule as the webhook path: the expiry write must survive
		// the rollback of the rejecting transaction.
		if _, terr := s.intentRepo.Transition(ctx, s.db, intentID,
			intentdomain.StatusRequiresPayment, intentdomain.StatusExpired, now); terr != nil {
			return nil, terr
		}
		return nil, intentdomain.ErrExpired
	}
	if err != nil {
		return nil, err
	}

	metrics.WalletAdjustmentsTotal.WithLabelValues(string(walletdomain.DirectionOut), "ok").Inc()
	return out, nil
}

func (s *Service) ResolveReturn(ctx context.Context, orderCode int64) (*settlementdomain.ReturnResolution, error) {
	intent, err := s.intentRepo.FindByOrderCode(ctx, s.db, orderCode)
	if err != nil {
		return nil, err
	}
	return &settlementdomain.ReturnResolution{
		IntentID: intent.ID,
		Paid:     intent.Status == intentdomain.StatusSucceeded,
	}, nil
}
