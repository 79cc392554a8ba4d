package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"eventure/db"
	"eventure/db/anomalies"
	"eventure/db/events"
	"eventure/db/tickets"
	"eventure/http"
	"eventure/payhere"
	"eventure/pubsub"
	"eventure/pubsub/bus"
	"eventure/pubsub/event"
	"eventure/pubsub/outbox"
	"eventure/reconcile"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Config struct {
	HTTPAddr      string
	ActivationKey string
	TicketBaseURL string
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
}

func New(
	cfg Config,
	verifier payhere.Verifier,
	dbConn *sqlx.DB,
	redisClient *redis.Client,
	deliveryService event.DeliveryService,
) Service {
	ticketsRepo := tickets.NewPostgresRepository(dbConn)
	eventsRepo := events.NewPostgresRepository(dbConn)
	anomaliesRepo := anomalies.NewPostgresRepository(dbConn)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var redisPublisher message.Publisher
	redisPublisher = pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	engine := reconcile.NewEngine(verifier, ticketsRepo, eventBus)

	eventsHandler := event.NewHandler(
		deliveryService,
		ticketsRepo,
		eventsRepo,
		anomaliesRepo,
		cfg.TicketBaseURL,
	)

	postgresSubscriber := outbox.NewPostgresSubscriber(dbConn, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		eventProcessorConfig,
		eventsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		cfg.ActivationKey,
		engine,
		ticketsRepo,
		eventsRepo,
		anomaliesRepo,
	)

	return Service{
		db:              dbConn,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// HTTP starts only once the router is running, so the service is not
		// reported healthy before it can process messages.
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
