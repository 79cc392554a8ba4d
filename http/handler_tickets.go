package http

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"eventure/entity"
	"eventure/reconcile"
)

type postTicketRequest struct {
	TicketID    string `json:"ticket_id"`
	EventID     string `json:"event_id"`
	HolderName  string `json:"holder_name"`
	HolderEmail string `json:"holder_email"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type postTicketResponse struct {
	TicketID string `json:"ticket_id"`
}

type ticketStatusResponse struct {
	TicketID string              `json:"ticket_id"`
	EventID  string              `json:"event_id"`
	Status   entity.TicketStatus `json:"status"`
	Amount   string              `json:"amount"`
	Currency string              `json:"currency"`
	Attended bool                `json:"attended"`
}

type putAttendanceRequest struct {
	Attended bool `json:"attended"`
}

// PostTickets issues an unpaid ticket; the booking flow retries safely
// because Add is idempotent on ticket_id.
func (s Server) PostTickets(c echo.Context) error {
	var request postTicketRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	amountCents, err := entity.ParseAmountCents(request.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount: "+err.Error())
	}
	if request.EventID == "" || request.HolderEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id and holder_email are required")
	}

	if _, err := s.eventsRepo.Get(c.Request().Context(), request.EventID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event_id")
		}
		return err
	}

	ticketID := request.TicketID
	if ticketID == "" {
		ticketID = uuid.NewString()
	}

	currency := request.Currency
	if currency == "" {
		currency = "LKR"
	}

	err = s.ticketsRepo.Add(c.Request().Context(), entity.Ticket{
		TicketID:    ticketID,
		EventID:     request.EventID,
		HolderName:  request.HolderName,
		HolderEmail: request.HolderEmail,
		AmountCents: amountCents,
		Currency:    currency,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, postTicketResponse{TicketID: ticketID})
}

func (s Server) GetTicket(c echo.Context) error {
	ticket, err := s.ticketsRepo.Get(c.Request().Context(), c.Param("ticket_id"))
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ticketStatusResponse{
		TicketID: ticket.TicketID,
		EventID:  ticket.EventID,
		Status:   ticket.Status,
		Amount:   entity.FormatAmountCents(ticket.AmountCents),
		Currency: ticket.Currency,
		Attended: ticket.Attended,
	})
}

// PostTicketActivate is the operator-facing activation trigger; it requires
// the shared activation key, which is distinct from the gateway signature.
func (s Server) PostTicketActivate(c echo.Context) error {
	if err := s.checkActivationKey(c); err != nil {
		return err
	}

	result := s.engine.Activate(c.Request().Context(), c.Param("ticket_id"))
	return respondWithResult(c, result)
}

func (s Server) TicketRefund(c echo.Context) error {
	if err := s.checkActivationKey(c); err != nil {
		return err
	}

	result := s.engine.Refund(c.Request().Context(), c.Param("ticket_id"))
	return respondWithResult(c, result)
}

func (s Server) PutTicketAttendance(c echo.Context) error {
	if err := s.checkActivationKey(c); err != nil {
		return err
	}

	var request putAttendanceRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	err := s.ticketsRepo.SetAttendance(c.Request().Context(), c.Param("ticket_id"), request.Attended)
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

func (s Server) checkActivationKey(c echo.Context) error {
	provided := c.Request().Header.Get("X-Activation-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.activationKey)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid activation key")
	}
	return nil
}

func respondWithResult(c echo.Context, result reconcile.Result) error {
	switch result.Outcome {
	case reconcile.OutcomeRejected:
		if result.Reason == "unknown ticket id" {
			return echo.NewHTTPError(http.StatusNotFound, result.Reason)
		}
		return echo.NewHTTPError(http.StatusConflict, result.Reason)
	default:
		return c.JSON(http.StatusOK, map[string]any{
			"status":  result.Status,
			"outcome": result.Outcome,
		})
	}
}
