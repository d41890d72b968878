package grpc

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DependencyCheck checks one dependency of the process. A nil error means the dependency is usable.
type DependencyCheck func(ctx context.Context) error

// HealthServiceArgs are the mandatory args to instantiate the HealthService.
type HealthServiceArgs struct {
	// Service is the name reported next to the overall ("") status.
	Service string

	// Checks run on every tick. The service is SERVING only while all of them pass.
	Checks map[string]DependencyCheck
}

// HealthServiceOptArgs are the optional arguments for building a HealthService
type HealthServiceOptArgs = func(*HealthService)

// WithInterval overrides the period between two check rounds.
func WithInterval(interval time.Duration) HealthServiceOptArgs {
	return func(h *HealthService) {
		h.interval = interval
	}
}

// WithCheckTimeout overrides the deadline of a single check.
func WithCheckTimeout(timeout time.Duration) HealthServiceOptArgs {
	return func(h *HealthService) {
		h.checkTimeout = timeout
	}
}

// NewHealthService creates a new HealthService. Its status is NOT_SERVING until the first check round.
func NewHealthService(args HealthServiceArgs, optArgs ...HealthServiceOptArgs) (*HealthService, error) {
	if args.Service == "" {
		return nil, errors.New("empty service name")
	}
	h := &HealthService{
		server:       health.NewServer(),
		service:      args.Service,
		checks:       args.Checks,
		interval:     10 * time.Second,
		checkTimeout: 2 * time.Second,
	}
	for _, opt := range optArgs {
		opt(h)
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h, nil
}

// HealthService implements the standard grpc.health.v1 service, driven by dependency checks.
type HealthService struct {
	server       *health.Server
	service      string
	checks       map[string]DependencyCheck
	interval     time.Duration
	checkTimeout time.Duration
}

// Register registers the health service on s.
func (h *HealthService) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check runs every dependency check once and publishes the resulting status.
func (h *HealthService) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			log.WithError(err).WithField("dependency", name).Warn("health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.setStatus(status)
	return status
}

// Watch runs the checks on every interval until ctx is done.
func (h *HealthService) Watch(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher and refuses later updates.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthService) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(h.service, status)
}
