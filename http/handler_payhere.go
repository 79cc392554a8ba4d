package http

import (
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"eventure/metrics"
	"eventure/payhere"
	"eventure/reconcile"
)

type payhereAckResponse struct {
	Message string `json:"message"`
}

// PostPayhereNotify receives the gateway's server-to-server callback. It
// always acknowledges with HTTP 200: the gateway's retry behavior on error
// codes is unreliable, so duplicates are absorbed by the engine's
// idempotency instead of suppressed with transport failures. The internal
// disposition is logged and counted only.
func (s Server) PostPayhereNotify(c echo.Context) error {
	ctx := c.Request().Context()
	logger := log.FromContext(ctx)

	form, err := c.FormParams()
	if err != nil {
		logger.WithError(err).Warn("Unreadable payment notification")
		metrics.NotificationsReceived.WithLabelValues(string(reconcile.OutcomeRejected)).Inc()
		return c.JSON(http.StatusOK, payhereAckResponse{Message: "rejected"})
	}

	notification, err := payhere.ParseNotification(form)
	if err != nil {
		logger.WithError(err).Warn("Malformed payment notification")
		metrics.NotificationsReceived.WithLabelValues(string(reconcile.OutcomeRejected)).Inc()
		return c.JSON(http.StatusOK, payhereAckResponse{Message: "rejected"})
	}

	result := s.engine.Reconcile(ctx, notification)
	metrics.NotificationsReceived.WithLabelValues(string(result.Outcome)).Inc()

	logger = logger.
		WithField("order_id", notification.OrderID).
		WithField("outcome", result.Outcome)

	switch result.Outcome {
	case reconcile.OutcomeRejected:
		logger.WithField("reason", result.Reason).Warn("Payment notification rejected")
		return c.JSON(http.StatusOK, payhereAckResponse{Message: "rejected"})
	default:
		logger.WithField("status", result.Status).Info("Payment notification reconciled")
		return c.JSON(http.StatusOK, payhereAckResponse{Message: "success"})
	}
}
