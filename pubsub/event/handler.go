package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"eventure/entity"
)

// DeliveryService sends one confirmation artifact. Failures are reported,
// never retried into a second send.
type DeliveryService interface {
	Send(ctx context.Context, job entity.ConfirmationJob) error
}

type TicketsRepository interface {
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type AnomaliesRepository interface {
	Store(ctx context.Context, anomaly entity.Anomaly) error
}

type Handler struct {
	deliveryService DeliveryService
	ticketsRepo     TicketsRepository
	eventsRepo      EventsRepository
	anomaliesRepo   AnomaliesRepository
	ticketBaseURL   string
}

func NewHandler(
	deliveryService DeliveryService,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	anomaliesRepo AnomaliesRepository,
	ticketBaseURL string,
) Handler {
	if deliveryService == nil {
		panic("missing deliveryService")
	}
	if ticketsRepo == nil {
		panic("missing ticketsRepo")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}
	if anomaliesRepo == nil {
		panic("missing anomaliesRepo")
	}

	return Handler{
		deliveryService: deliveryService,
		ticketsRepo:     ticketsRepo,
		eventsRepo:      eventsRepo,
		anomaliesRepo:   anomaliesRepo,
		ticketBaseURL:   ticketBaseURL,
	}
}

func NewProcessorConfig(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-eventure." + params.HandlerName,
			}, watermillLogger)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return "events." + params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: watermillLogger,
	}
}
