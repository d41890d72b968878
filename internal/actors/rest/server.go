package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServerArgs are the mandatory args to instantiate the Server.
type ServerArgs struct {
	// Users is the usecase for sign-up, login and profiles.
	Users usersUsecase

	// Events is the usecase for the event-lifecycle.
	Events eventsUsecase

	// Ledger is the usecase for registrations.
	Ledger ledgerUsecase
}

// ServerOptArgs are the optional arguments for building a Server
type ServerOptArgs = func(*Server)

// WithJoinLimiter throttles joins per caller with a token bucket.
func WithJoinLimiter(conf LimiterConfig) ServerOptArgs {
	return func(s *Server) {
		s.limiterConf = &conf
	}
}

// WithJoinQuota caps the joins per caller per day.
func WithJoinQuota(quota joinQuota) ServerOptArgs {
	return func(s *Server) {
		s.quota = quota
	}
}

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) ServerOptArgs {
	return func(s *Server) {
		s.nowFunc = nowFunc
	}
}

// Server exposes the use-cases over HTTP.
type Server struct {
	users       usersUsecase
	events      eventsUsecase
	ledger      ledgerUsecase
	limiterConf *LimiterConfig
	limiter     *rateLimiter
	quota       joinQuota
	nowFunc     func() time.Time
	engine      *gin.Engine
}

// NewServer creates a new Server and registers its routes.
func NewServer(args ServerArgs, optArgs ...ServerOptArgs) *Server {
	s := &Server{
		users:   args.Users,
		events:  args.Events,
		ledger:  args.Ledger,
		nowFunc: time.Now,
	}
	for _, opt := range optArgs {
		opt(s)
	}
	if s.limiterConf != nil {
		s.limiter = newRateLimiter(*s.limiterConf, s.nowFunc)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.healthz)

	api := s.engine.Group("/api")
	api.POST("/auth/signup", s.signUp)
	api.POST("/auth/login", s.login)

	auth := api.Group("/")
	auth.Use(s.authenticate)

	auth.GET("/users/me", s.getProfile)
	auth.PUT("/users/me", s.updateProfile)
	auth.PUT("/users/me/avatar", s.setAvatar)
	auth.GET("/users/me/organized-events", s.listOrganizedEvents)
	auth.GET("/users/me/registrations", s.listMyRegistrations)
	auth.GET("/users/:id/avatar", s.getAvatar)

	auth.GET("/events", s.listEvents)
	auth.POST("/events", s.createEvent)
	auth.GET("/events/:id", s.getEvent)
	auth.DELETE("/events/:id", s.cancelEvent)
	auth.POST("/events/:id/register", s.throttleJoins, s.register)
	auth.DELETE("/events/:id/register", s.withdraw)
	auth.GET("/events/:id/registrations", s.listEventRegistrations)

	auth.DELETE("/registrations/:id", s.cancelRegistration)
}

// healthz is the health endpoint for the server
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Ok"})
}
