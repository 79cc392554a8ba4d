package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"eventure/entity"
	"eventure/payhere"
	"eventure/reconcile"
)

// Reconciler is the engine surface the HTTP boundary needs.
type Reconciler interface {
	Reconcile(ctx context.Context, n payhere.Notification) reconcile.Result
	Activate(ctx context.Context, ticketID string) reconcile.Result
	Refund(ctx context.Context, ticketID string) reconcile.Result
}

type TicketsRepository interface {
	Add(ctx context.Context, ticket entity.Ticket) error
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
	SetAttendance(ctx context.Context, ticketID string, attended bool) error
}

type EventsRepository interface {
	Store(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type AnomaliesRepository interface {
	FindAll(ctx context.Context) ([]entity.Anomaly, error)
}

type Server struct {
	addr          string
	e             *echo.Echo
	activationKey string
	engine        Reconciler
	ticketsRepo   TicketsRepository
	eventsRepo    EventsRepository
	anomaliesRepo AnomaliesRepository
}

func NewServer(
	addr string,
	activationKey string,
	engine Reconciler,
	ticketsRepo TicketsRepository,
	eventsRepo EventsRepository,
	anomaliesRepo AnomaliesRepository,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("eventure"))

	server := &Server{
		addr:          addr,
		e:             e,
		activationKey: activationKey,
		engine:        engine,
		ticketsRepo:   ticketsRepo,
		eventsRepo:    eventsRepo,
		anomaliesRepo: anomaliesRepo,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/payhere/notify", server.PostPayhereNotify)

	e.POST("/tickets", server.PostTickets)
	e.GET("/tickets/:ticket_id", server.GetTicket)
	e.POST("/tickets/:ticket_id/activate", server.PostTicketActivate)
	e.PUT("/tickets/:ticket_id/attendance", server.PutTicketAttendance)
	e.PUT("/ticket-refund/:ticket_id", server.TicketRefund)

	e.POST("/events", server.PostEvents)
	e.GET("/events/:event_id", server.GetEvent)

	e.GET("/ops/anomalies", server.GetOpsAnomalies)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
