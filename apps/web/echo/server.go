package webapp

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/session"
	apisvc "github.com/trezcool/escuela/services/api"
)

type (
	// Backend is everything the portal asks the school REST backend.
	Backend interface {
		auth.Authenticator
		CarouselImages(ctx context.Context) ([]string, error)
		List(ctx context.Context, endpoint, envelope string) ([]apisvc.Record, error)
		Welcome(ctx context.Context) ([]apisvc.Welcome, error)
		News(ctx context.Context) ([]apisvc.NewsItem, error)
		Careers(ctx context.Context) ([]apisvc.Career, error)
		Missions(ctx context.Context) ([]apisvc.Mission, error)
		Visions(ctx context.Context) ([]apisvc.Vision, error)
		AboutUs(ctx context.Context) ([]apisvc.AboutUs, error)
		Scholarships(ctx context.Context) ([]apisvc.Scholarship, error)
		SendContact(ctx context.Context, msg apisvc.ContactMessage) (string, error)
	}

	ServerDeps struct {
		Conf     *core.Config
		Logger   core.Logger
		Backend  Backend
		Sessions session.Registry
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		conf     *core.Config
		logger   core.Logger
		backend  Backend
		sessions session.Registry
		flow     *auth.Flow
		cookies  *cookieSigner
		metrics  *metrics
		upgrader websocket.Upgrader
		now      func() time.Time

		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) (Server, error) {
	rndr, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &server{
		conf:     deps.Conf,
		logger:   deps.Logger,
		backend:  deps.Backend,
		sessions: deps.Sessions,
		flow:     auth.NewFlow(deps.Backend),
		cookies:  newCookieSigner(deps.Conf),
		metrics:  newMetrics(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		now:      time.Now,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.app.Renderer = rndr
	s.setup()

	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s, nil
}

func (s *server) setup() {
	debug := s.conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.RequestID())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/health", health)
	s.app.GET("/metrics", s.metrics.handler())

	web := s.app.Group("", s.sessionMiddleware)
	web.GET("/", s.home)
	web.POST("/contact", s.contact)
	registerLogin(web, s)
	registerDashboards(web, s)
}

func (s *server) Start() {
	srv := &http.Server{
		Addr:         s.conf.Server.Addr,
		ReadTimeout:  s.conf.Server.ReadTimeout,
		WriteTimeout: s.conf.Server.WriteTimeout,
	}
	if err := s.app.StartServer(srv); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
