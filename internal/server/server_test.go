package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/unihub/unihub/internal/config"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
	settlementdomain "github.com/unihub/unihub/internal/settlement/domain"
)

type fakeSettlementService struct {
	result     settlementdomain.Result
	err        error
	gotBody    []byte
	gotSig     string
	resolution *settlementdomain.ReturnResolution
}

func (f *fakeSettlementService) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (settlementdomain.Result, error) {
	_ = ctx
	f.gotBody = rawBody
	f.gotSig = signature
	return f.result, f.err
}

func (f *fakeSettlementService) ConfirmWithWallet(ctx context.Context, intentID snowflake.ID) (*intentdomain.PaymentIntent, error) {
	_ = ctx
	_ = intentID
	return nil, f.err
}

func (f *fakeSettlementService) ResolveReturn(ctx context.Context, orderCode int64) (*settlementdomain.ReturnResolution, error) {
	_ = ctx
	_ = orderCode
	if f.err != nil {
		return nil, f.err
	}
	return f.resolution, nil
}

type fakeRegistrationService struct {
	err error
}

func (f *fakeRegistrationService) Register(ctx context.Context, eventID, userID snowflake.ID) (*registrationdomain.RegisterResult, error) {
	_ = ctx
	if f.err != nil {
		return nil, f.err
	}
	return &registrationdomain.RegisterResult{
		Registration: &registrationdomain.EventRegistration{
			ID:      snowflake.ID(1),
			EventID: eventID,
			UserID:  userID,
			Status:  registrationdomain.StatusConfirmed,
		},
	}, nil
}

func (f *fakeRegistrationService) Cancel(ctx context.Context, eventID, userID snowflake.ID) error {
	_ = ctx
	_ = eventID
	_ = userID
	return f.err
}

func (f *fakeRegistrationService) Get(ctx context.Context, eventID, userID snowflake.ID) (*registrationdomain.EventRegistration, error) {
	_ = ctx
	_ = eventID
	_ = userID
	return nil, f.err
}

func newTestServer(settlement *fakeSettlementService, regs *fakeRegistrationService) *Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:        engine,
		cfg:           config.Config{},
		settlementSvc: settlement,
		regSvc:        regs,
	}
	s.registerPublicRoutes()
	s.registerAPIRoutes()
	return s
}

func TestWebhookEndpointRespondsWithResult(t *testing.T) {
	fake := &fakeSettlementService{result: settlementdomain.ResultOK}
	s := newTestServer(fake, &fakeRegistrationService{})

	body := []byte(`{"orderCode":42,"amount":1000,"reference":"R1","success":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payos", bytes.NewReader(body))
	req.Header.Set("x-signature", "deadbeef")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, fake.gotBody)
	assert.Equal(t, "deadbeef", fake.gotSig)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestWebhookEndpointIgnoredReplay(t *testing.T) {
	fake := &fakeSettlementService{result: settlementdomain.ResultIgnored}
	s := newTestServer(fake, &fakeRegistrationService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payos", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestWebhookEndpointBadSignature(t *testing.T) {
	fake := &fakeSettlementService{err: settlementdomain.ErrInvalidSignature}
	s := newTestServer(fake, &fakeRegistrationService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payos", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutReturnRedirects(t *testing.T) {
	fake := &fakeSettlementService{
		resolution: &settlementdomain.ReturnResolution{IntentID: snowflake.ID(77), Paid: true},
	}
	s := newTestServer(fake, &fakeRegistrationService{})
	s.cfg.PayOS.ReturnURL = "http://localhost:3000/payments/result"

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/return?orderCode=77", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "status=success")
	assert.Contains(t, rec.Header().Get("Location"), "intentId=77")
}

func TestCheckoutReturnUnknownOrderCodeRedirectsFailed(t *testing.T) {
	fake := &fakeSettlementService{err: intentdomain.ErrNotFound}
	s := newTestServer(fake, &fakeRegistrationService{})
	s.cfg.PayOS.ReturnURL = "http://localhost:3000/payments/result"

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/return?orderCode=424242", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	// The payer lands on the result page, never on an API error.
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000/payments/result?status=failed", rec.Header().Get("Location"))
}

func TestRegisterRequiresUserHeader(t *testing.T) {
	s := newTestServer(&fakeSettlementService{}, &fakeRegistrationService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/events/10/registrations", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"capacity", registrationdomain.ErrCapacityReached, http.StatusForbidden},
		{"duplicate", registrationdomain.ErrAlreadyRegistered, http.StatusConflict},
		{"missing event", registrationdomain.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeSettlementService{}, &fakeRegistrationService{err: tc.err})

			req := httptest.NewRequest(http.MethodPost, "/v1/events/10/registrations", nil)
			req.Header.Set("X-User-ID", "501")
			rec := httptest.NewRecorder()
			s.Engine().ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRegisterSuccess(t *testing.T) {
	s := newTestServer(&fakeSettlementService{}, &fakeRegistrationService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/events/10/registrations", nil)
	req.Header.Set("X-User-ID", "501")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registration"`)
}
