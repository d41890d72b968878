package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	grpcactor "github.com/rbroggi/racketbuddy/internal/actors/grpc"
	"github.com/rbroggi/racketbuddy/internal/actors/rest"
	"github.com/rbroggi/racketbuddy/internal/core/usecase"
	"github.com/rbroggi/racketbuddy/internal/wiring"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

var (
	grpcServerEndpoint = flag.String("grpc-server-endpoint", "localhost:50051", "gRPC server endpoint")
	httpServerEndpoint = flag.String("http-server-endpoint", "localhost:8080", "HTTP server endpoint")
	joinRPS            = flag.Float64("join-rps", 1, "sustained joins per second allowed per caller")
	joinBurst          = flag.Int("join-burst", 5, "join burst allowed per caller")
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := wiring.LoadConfig()
	if err != nil {
		return err
	}
	wiring.ConfigureLogging(conf.LogLevel)
	if conf.LogLevel < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

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
	avatars, err := factory.AvatarStore(ctx)
	if err != nil {
		return err
	}
	identity, err := factory.Identity()
	if err != nil {
		return err
	}
	quota, err := factory.JoinQuota()
	if err != nil {
		return err
	}

	var opts []usecase.OptArgs
	if sender != nil {
		opts = append(opts, usecase.WithSender(sender))
	}
	ledger := usecase.NewLedger(usecase.LedgerArgs{Repository: repo}, opts...)
	serverOpts := []rest.ServerOptArgs{rest.WithJoinLimiter(rest.LimiterConfig{RPS: *joinRPS, Burst: *joinBurst})}
	if quota != nil {
		serverOpts = append(serverOpts, rest.WithJoinQuota(quota))
	}
	restServer := rest.NewServer(rest.ServerArgs{
		Users:  usecase.NewUserService(usecase.UserServiceArgs{Repository: repo, Identity: identity, Avatars: avatars}, opts...),
		Events: usecase.NewEventService(usecase.EventServiceArgs{Repository: repo, Ledger: ledger}, opts...),
		Ledger: ledger,
	}, serverOpts...)

	httpServer := &http.Server{
		Addr:              *httpServerEndpoint,
		Handler:           restServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErrs := make(chan error, 2)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrs <- fmt.Errorf("http server stopped: %w", err)
		}
	}()

	healthService, err := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{
		Service: "racketbuddy.server",
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
		WithField("http-server-addr", *httpServerEndpoint).
		WithField("grpc-server-addr", *grpcServerEndpoint).
		WithField("store", conf.Store).
		WithField("notifier", conf.Notifier).
		Info("servers up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	// Wait for signal or for a server to stop
	serveErr := wiring.WaitForShutdown(ctx, serveErrs)

	// Stop servers
	healthService.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("error shutting down http server")
	}
	s.GracefulStop()

	return serveErr
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
