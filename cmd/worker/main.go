package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"

	grpcactor "github.com/rbroggi/racketbuddy/internal/actors/grpc"
	subscriberactor "github.com/rbroggi/racketbuddy/internal/actors/pubsub/subscriber"
	"github.com/rbroggi/racketbuddy/internal/core/usecase"
	"github.com/rbroggi/racketbuddy/internal/wiring"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

var grpcServerEndpoint = flag.String("grpc-server-endpoint", "localhost:50052", "gRPC server endpoint")

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := wiring.LoadConfig()
	if err != nil {
		return err
	}
	wiring.ConfigureLogging(conf.LogLevel)

	factory := wiring.NewFactory(conf)
	defer factory.Close()

	repo, err := factory.Repository(ctx)
	if err != nil {
		return err
	}
	sender, err := factory.Sender(ctx)
	if err != nil {
		return err
	}
	subscription, err := factory.AuditSubscription(ctx)
	if err != nil {
		return err
	}

	var opts []usecase.OptArgs
	if sender != nil {
		opts = append(opts, usecase.WithSender(sender))
	}
	ledger := usecase.NewLedger(usecase.LedgerArgs{Repository: repo}, opts...)
	auditor := usecase.NewAuditor(usecase.AuditorArgs{Repository: repo, Ledger: ledger}, opts...)

	subscriber := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		Subscription:        subscription,
		AuditRequestHandler: auditor,
	})

	// start subscriber
	serveErrs := make(chan error, 2)
	go func(ctx context.Context) {
		err := subscriber.Consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		serveErrs <- fmt.Errorf("audit subscriber stopped: %w", err)
	}(ctx)

	healthService, err := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{
		Service: "racketbuddy.worker",
		Checks:  factory.HealthChecks(),
	})
	if err != nil {
		return err
	}
	go healthService.Watch(ctx)

	lis, err := net.Listen("tcp", *grpcServerEndpoint)
	if err != nil {
		return err
	}
	s := grpc.NewServer()
	healthService.Register(s)

	// Register reflection service on gRPC server.
	reflection.Register(s)

	// Start gRPC server
	go func() {
		if err := s.Serve(lis); err != nil {
			serveErrs <- fmt.Errorf("grpc server stopped: %w", err)
		}
	}()

	log.
		WithField("grpc-server-addr", *grpcServerEndpoint).
		WithField("subscription", conf.PubSubAuditSubscriptionID).
		Info("worker up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the worker")

	// Wait for signal or for the subscriber or the grpc server to stop
	serveErr := wiring.WaitForShutdown(ctx, serveErrs)

	// Stop worker
	healthService.Shutdown()
	cancel()
	s.GracefulStop()

	return serveErr
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("worker failed")
	}
}
