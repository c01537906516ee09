package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/unihub/unihub/internal/event/domain"
	intentdomain "github.com/unihub/unihub/internal/paymentintent/domain"
	registrationdomain "github.com/unihub/unihub/internal/registration/domain"
)

type createEventRequest struct {
	Title            string    `json:"title"`
	Capacity         *int      `json:"capacity"`
	TicketPriceCents int64     `json:"ticket_price_cents"`
	StartsAt         time.Time `json:"starts_at"`
}

func (s *Server) CreateEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.eventSvc.Create(c.Request.Context(), eventdomain.CreateInput{
		HostID:           userID,
		Title:            strings.TrimSpace(req.Title),
		Capacity:         req.Capacity,
		TicketPriceCents: req.TicketPriceCents,
		StartsAt:         req.StartsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) GetEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ev, err := s.eventSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

type registerResponse struct {
	Registration  *registrationdomain.EventRegistration `json:"registration"`
	PaymentIntent *intentdomain.PaymentIntent           `json:"payment_intent,omitempty"`
}

func (s *Server) RegisterForEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.regSvc.Register(c.Request.Context(), eventID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{
		Registration:  result.Registration,
		PaymentIntent: result.Intent,
	})
}

func (s *Server) CancelRegistration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.regSvc.Cancel(c.Request.Context(), eventID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}
