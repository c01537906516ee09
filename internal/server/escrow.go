package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetEscrow(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	esc, err := s.escrowSvc.Get(c.Request.Context(), eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, esc)
}

// ReleaseEscrow pays the held ticket revenue out to the host once the
// event has taken place. Only the host may trigger it.
func (s *Server) ReleaseEscrow(c *gin.Context) {
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

	ev, err := s.eventSvc.Get(c.Request.Context(), eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ev.HostID != userID {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.escrowSvc.Release(c.Request.Context(), eventID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// RefundEscrow returns the held funds to the attendees when the host
// cancels the event.
func (s *Server) RefundEscrow(c *gin.Context) {
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

	ev, err := s.eventSvc.Get(c.Request.Context(), eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if ev.HostID != userID {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.escrowSvc.Refund(c.Request.Context(), eventID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}
