package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unihub/unihub/internal/config"
	"github.com/unihub/unihub/internal/escrow"
	escrowdomain "github.com/unihub/unihub/internal/escrow/domain"
	"github.com/unihub/unihub/internal/event"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	"github.com/unihub/unihub/internal/membership"
	membershipdomain "github.com/unihub/unihub/internal/membership/domain"
	"github.com/unihub/unihub/internal/metrics"
	"github.com/unihub/unihub/internal/paymentintent"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	"github.com/unihub/unihub/internal/ratelimit"
	"github.com/unihub/unihub/internal/registration"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
	"github.com/unihub/unihub/internal/settlement"
	settlementdomain "github.com/unihub/unihub/internal/settlement/domain"
	"github.com/unihub/unihub/internal/wallet"
	walletdomain "github.com/unihub/unihub/internal/wallet/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	wallet.Module,
	paymentintent.Module,
	escrow.Module,
	membership.Module,
	event.Module,
	registration.Module,
	settlement.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	walletSvc     walletdomain.Service
	intentSvc     intentdomain.Service
	escrowSvc     escrowdomain.Service
	membershipSvc membershipdomain.Service
	eventSvc      eventdomain.Service
	regSvc        registrationdomain.Service
	settlementSvc settlementdomain.Service
	publicLimiter *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	WalletSvc     walletdomain.Service
	IntentSvc     intentdomain.Service
	EscrowSvc     escrowdomain.Service
	MembershipSvc membershipdomain.Service
	EventSvc      eventdomain.Service
	RegSvc        registrationdomain.Service
	SettlementSvc settlementdomain.Service
	PublicLimiter *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		walletSvc:     p.WalletSvc,
		intentSvc:     p.IntentSvc,
		escrowSvc:     p.EscrowSvc,
		membershipSvc: p.MembershipSvc,
		eventSvc:      p.EventSvc,
		regSvc:        p.RegSvc,
		settlementSvc: p.SettlementSvc,
		publicLimiter: p.PublicLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Public surface: gateway deliveries and checkout redirects carry no
// user session, only the provider signature and order code.
func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/v1")
	public.Use(s.PublicRateLimit())

	public.POST("/webhooks/payos", s.HandleSettlementWebhook)
	public.GET("/payments/return", s.HandleCheckoutReturn)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(s.UserRequired())

	api.POST("/events", s.CreateEvent)
	api.GET("/events/:id", s.GetEvent)
	api.POST("/events/:id/registrations", s.RegisterForEvent)
	api.DELETE("/events/:id/registrations", s.CancelRegistration)
	api.GET("/events/:id/escrow", s.GetEscrow)
	api.POST("/events/:id/escrow/release", s.ReleaseEscrow)
	api.POST("/events/:id/escrow/refund", s.RefundEscrow)

	api.GET("/wallet", s.GetWallet)
	api.POST("/wallet/topups", s.CreateTopUp)

	api.GET("/payment-intents/:id", s.GetPaymentIntent)
	api.POST("/payment-intents/:id/cancel", s.CancelPaymentIntent)
	api.POST("/payment-intents/:id/confirm-wallet", s.ConfirmWithWallet)

	api.GET("/membership", s.GetMembership)
	api.GET("/membership/plans", s.ListMembershipPlans)
}
