package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"eventure/entity"
)

type postEventRequest struct {
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	ImageURL string `json:"image_url"`
}

type postEventResponse struct {
	EventID string `json:"event_id"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	eventID := request.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	err := s.eventsRepo.Store(c.Request().Context(), entity.Event{
		EventID:  eventID,
		Name:     request.Name,
		Date:     request.Date,
		Time:     request.Time,
		Location: request.Location,
		ImageURL: request.ImageURL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, postEventResponse{EventID: eventID})
}

func (s Server) GetEvent(c echo.Context) error {
	event, err := s.eventsRepo.Get(c.Request().Context(), c.Param("event_id"))
	if errors.Is(err, entity.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}
