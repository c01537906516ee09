package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
)

// HandleSettlementWebhook ingests one gateway delivery. Replays and
// failure notifications acknowledge with "ignored" so the gateway
// stops redelivering.
func (s *Server) HandleSettlementWebhook(c *gin.Context) {
	signature := strings.TrimSpace(c.GetHeader("x-signature"))
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.settlementSvc.ProcessWebhook(c.Request.Context(), rawBody, signature)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(result)})
}

// HandleCheckoutReturn maps the gateway browser redirect back to the
// intent and forwards the payer to the frontend result page.
func (s *Server) HandleCheckoutReturn(c *gin.Context) {
	orderCode, err := strconv.ParseInt(strings.TrimSpace(c.Query("orderCode")), 10, 64)
	if err != nil || orderCode <= 0 {
		AbortWithError(c, newValidationError("orderCode", "invalid_order_code", "must be a positive integer"))
		return
	}

	resolution, err := s.settlementSvc.ResolveReturn(c.Request.Context(), orderCode)
	if err != nil {
		if errors.Is(err, intentdomain.ErrNotFound) {
			// Unknown order codes still land the payer on the result
			// page rather than an API error.
			c.Redirect(http.StatusFound, fmt.Sprintf("%s?status=failed", s.cfg.PayOS.ReturnURL))
			return
		}
		AbortWithError(c, err)
		return
	}

	status := "failed"
	if resolution.Paid {
		status = "success"
	}

	target := fmt.Sprintf("%s?status=%s&intentId=%s",
		s.cfg.PayOS.ReturnURL, status, url.QueryEscape(resolution.IntentID.String()))
	c.Redirect(http.StatusFound, target)
}

func (s *Server) GetPaymentIntent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.intentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if intent.UserID != userID {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, intent)
}

func (s *Server) CancelPaymentIntent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.intentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if intent.UserID != userID {
		AbortWithError(c, ErrNotFound)
		return
	}

	canceled, err := s.intentSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, canceled)
}

func (s *Server) ConfirmWithWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.intentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if intent.UserID != userID {
		AbortWithError(c, ErrNotFound)
		return
	}

	settled, err := s.settlementSvc.ConfirmWithWallet(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settled)
}
