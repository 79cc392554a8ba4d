package event

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"eventure/entity"
	"eventure/metrics"
)

// DispatchConfirmationHandler sends the confirmation email for an activated
// ticket. The activation transition publishes entity.TicketActivated at most
// once, which bounds delivery to at most one attempt. A failed send is
// logged and counted but not returned as an error: retrying here could
// double-send, and activation is already committed either way.
func (h Handler) DispatchConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"DispatchConfirmation",
		func(ctx context.Context, event *entity.TicketActivated) error {
			logger := log.FromContext(ctx).WithField("ticket_id", event.TicketID)

			ticket, err := h.ticketsRepo.Get(ctx, event.TicketID)
			if err != nil {
				return fmt.Errorf("could not get ticket %s: %w", event.TicketID, err)
			}
			if ticket.Status == entity.TicketStatusRefunded {
				// refunded between activation and dispatch
				logger.Info("Skipping confirmation for refunded ticket")
				return nil
			}

			job, err := h.buildConfirmationJob(ctx, event)
			if err != nil {
				return fmt.Errorf("could not build confirmation job: %w", err)
			}

			if err := h.deliveryService.Send(ctx, job); err != nil {
				metrics.ConfirmationsFailed.Inc()
				logger.WithError(err).Error("Confirmation delivery failed")
				return nil
			}

			metrics.ConfirmationsSent.Inc()
			logger.Info("Confirmation sent")
			return nil
		},
	)
}

func (h Handler) buildConfirmationJob(ctx context.Context, event *entity.TicketActivated) (entity.ConfirmationJob, error) {
	eventData, err := h.eventsRepo.Get(ctx, event.EventID)
	if err != nil {
		return entity.ConfirmationJob{}, fmt.Errorf("could not get event %s: %w", event.EventID, err)
	}

	return entity.ConfirmationJob{
		TicketID:       event.TicketID,
		RecipientName:  event.HolderName,
		RecipientEmail: event.HolderEmail,
		EventName:      eventData.Name,
		EventDate:      formatEventDate(eventData.Date),
		EventTime:      formatEventTime(eventData.Time),
		EventLocation:  eventData.Location,
		EventImageURL:  eventData.ImageURL,
		TicketURL:      h.ticketBaseURL + "/tickets/" + event.TicketID,
	}, nil
}

// formatEventDate renders "2006-01-02" as "Jan 2, 2006". Unparseable input
// is passed through as entered.
func formatEventDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}

// formatEventTime renders "15:04" as "03:04 PM".
func formatEventTime(value string) string {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return value
	}
	return t.Format("03:04 PM")
}
