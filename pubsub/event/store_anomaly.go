package event

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"eventure/entity"
)

// StoreAnomalyHandler persists flagged notifications so operators can review
// them. The anomaly id is the flag event's id, making redelivery a no-op.
func (h Handler) StoreAnomalyHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"StoreAnomaly",
		func(ctx context.Context, event *entity.PaymentFlagged) error {
			log.FromContext(ctx).
				WithField("order_id", event.OrderID).
				WithField("reason", event.Reason).
				Warn("Storing payment anomaly")

			return h.anomaliesRepo.Store(ctx, entity.Anomaly{
				AnomalyID:  event.Header.ID,
				OrderID:    event.OrderID,
				PaymentID:  event.PaymentID,
				Reason:     event.Reason,
				DetectedAt: event.Header.PublishedAt,
			})
		},
	)
}
