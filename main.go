package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"eventure/db"
	"eventure/gateway"
	"eventure/payhere"
	"eventure/service"
	"eventure/tracing"
)

type options struct {
	HTTPAddr    string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`

	MerchantID     string `long:"merchant-id" env:"PAYHERE_MERCHANT_ID" required:"true" description:"PayHere merchant id"`
	MerchantSecret string `long:"merchant-secret" env:"PAYHERE_MERCHANT_SECRET" required:"true" description:"PayHere merchant secret"`

	ActivationKey string `long:"activation-key" env:"ACTIVATION_KEY" required:"true" description:"shared key for operator actions"`

	ResendAPIKey string `long:"resend-api-key" env:"RESEND_API_KEY" required:"true" description:"Resend API key"`
	EmailFrom    string `long:"email-from" env:"EMAIL_FROM" default:"Eventure <eventure@notifibm.com>" description:"confirmation sender address"`

	TicketBaseURL  string `long:"ticket-base-url" env:"TICKET_BASE_URL" default:"https://eventure.vercel.app" description:"public base URL for ticket links"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	log.Init(logrus.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp := tracing.ConfigureTraceProvider(opts.JaegerEndpoint)
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	dbConn, err := db.NewConn(opts.PostgresURL)
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
	})
	defer redisClient.Close()

	verifier := payhere.NewVerifier(opts.MerchantID, opts.MerchantSecret)
	deliveryService := gateway.NewResendClient(opts.ResendAPIKey, opts.EmailFrom)

	svc := service.New(
		service.Config{
			HTTPAddr:      opts.HTTPAddr,
			ActivationKey: opts.ActivationKey,
			TicketBaseURL: opts.TicketBaseURL,
		},
		verifier,
		dbConn,
		redisClient,
		deliveryService,
	)

	if err := svc.Run(ctx); err != nil {
		panic(err)
	}
}
