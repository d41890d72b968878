package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type createEventRequest struct {
	Location    model.Location `json:"location"`
	StartsAt    time.Time      `json:"starts_at"`
	Capacity    *int           `json:"capacity"`
	Description string         `json:"description"`
}

type createEventResponse struct {
	Event        model.Event        `json:"event"`
	Registration model.Registration `json:"registration"`
}

type listEventsResponse struct {
	Events []model.EventSummary `json:"events"`
}

type listRegistrationsResponse struct {
	Registrations []model.Registration `json:"registrations"`
}

type listUserRegistrationsResponse struct {
	Registrations []model.UserRegistration `json:"registrations"`
}

// GET /api/events
func (s *Server) listEvents(c *gin.Context) {
	offset, ok := queryUint(c, "offset", 0)
	if !ok {
		return
	}
	limit, ok := queryUint(c, "limit", defaultPageSize)
	if !ok {
		return
	}
	if limit == 0 || limit > maxPageSize {
		abortInvalid(c, "limit must be between 1 and 100")
		return
	}

	resp, err := s.events.ListActiveEvents(c.Request.Context(), model.ListActiveEventsArgs{Limit: limit, Offset: offset})
	if err != nil {
		abortWithError(c, "ListActiveEvents", err)
		return
	}
	c.JSON(http.StatusOK, listEventsResponse{Events: resp.Events})
}

// POST /api/events
func (s *Server) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "could not parse request data")
		return
	}
	resp, err := s.events.CreateEvent(c.Request.Context(), model.CreateEventArgs{
		OrganizerID: caller(c),
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		Description: req.Description,
	})
	if err != nil {
		abortWithError(c, "CreateEvent", err)
		return
	}
	c.JSON(http.StatusCreated, createEventResponse{Event: resp.Event, Registration: resp.Registration})
}

// GET /api/events/:id
func (s *Server) getEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}
	summary, err := s.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		abortWithError(c, "GetEvent", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// DELETE /api/events/:id
func (s *Server) cancelEvent(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.events.CancelEvent(c.Request.Context(), model.CancelEventArgs{EventID: eventID, CallerID: caller(c)}); err != nil {
		abortWithError(c, "CancelEvent", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/users/me/organized-events
func (s *Server) listOrganizedEvents(c *gin.Context) {
	resp, err := s.events.ListOrganizedEvents(c.Request.Context(), caller(c))
	if err != nil {
		abortWithError(c, "ListOrganizedEvents", err)
		return
	}
	c.JSON(http.StatusOK, listEventsResponse{Events: resp.Events})
}

// POST /api/events/:id/register
func (s *Server) register(c *gin.Context) {
	if isWithdraw(c) {
		s.withdraw(c)
		return
	}
	eventID, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.ledger.Register(c.Request.Context(), model.RegisterArgs{EventID: eventID, UserID: caller(c)})
	if err != nil {
		abortWithError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, resp.Registration)
}

// DELETE /api/events/:id/register
func (s *Server) withdraw(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.ledger.Withdraw(c.Request.Context(), model.RegisterArgs{EventID: eventID, UserID: caller(c)}); err != nil {
		abortWithError(c, "Withdraw", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/events/:id/registrations
func (s *Server) listEventRegistrations(c *gin.Context) {
	eventID, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.ledger.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		abortWithError(c, "ListForEvent", err)
		return
	}
	c.JSON(http.StatusOK, listRegistrationsResponse{Registrations: resp.Registrations})
}

// GET /api/users/me/registrations
func (s *Server) listMyRegistrations(c *gin.Context) {
	resp, err := s.ledger.ListForUser(c.Request.Context(), caller(c))
	if err != nil {
		abortWithError(c, "ListForUser", err)
		return
	}
	c.JSON(http.StatusOK, listUserRegistrationsResponse{Registrations: resp.Registrations})
}

// DELETE /api/registrations/:id
func (s *Server) cancelRegistration(c *gin.Context) {
	registrationID, ok := pathID(c)
	if !ok {
		return
	}
	err := s.ledger.CancelRegistration(c.Request.Context(), model.CancelRegistrationArgs{
		RegistrationID: registrationID,
		CallerID:       caller(c),
	})
	if err != nil {
		abortWithError(c, "CancelRegistration", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryUint(c *gin.Context, name string, def uint32) (uint32, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		abortInvalid(c, name+" must be a non negative integer")
		return 0, false
	}
	return uint32(v), true
}
