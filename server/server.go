package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Digital-Creators-Team/arcade-client/arcade"
	"github.com/Digital-Creators-Team/arcade-client/auth"
	"github.com/Digital-Creators-Team/arcade-client/config"
	"github.com/Digital-Creators-Team/arcade-client/middleware"
	"github.com/Digital-Creators-Team/arcade-client/pkg/feed"
)

// Server is the local HTTP bridge in front of the arcade
type Server struct {
	engine       *gin.Engine
	config       *config.Config
	logger       zerolog.Logger
	arcade       *arcade.App
	feed         *feed.Feed
	httpServer   *http.Server
	onShutdown   []func()
	gameHandler  *GameHandler
	frameHandler *FrameHandler
}

// Options holds server configuration options
type Options struct {
	Config *config.Config
	Arcade *arcade.App
	Feed   *feed.Feed
	Logger zerolog.Logger
}

// New creates the bridge and registers its routes
func New(opts Options) *Server {
	// Decimals travel as JSON numbers so browser clients can do arithmetic on them
	decimal.MarshalJSONWithoutQuotes = true

	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: gin.New(),
		config: opts.Config,
		logger: opts.Logger,
		arcade: opts.Arcade,
		feed:   opts.Feed,
	}
	s.gameHandler = NewGameHandler(opts.Arcade, opts.Logger)
	s.frameHandler = NewFrameHandler(opts.Feed, opts.Logger)

	s.useCommonMiddlewares()
	s.registerHealthCheck()
	s.registerGameRoutes()
	return s
}

func (s *Server) useCommonMiddlewares() {
	// Recovery middleware (must be first)
	s.engine.Use(middleware.Recovery(s.logger))
	s.engine.Use(middleware.TraceID())
	s.engine.Use(middleware.Logging(s.logger))

	if s.config.Bridge.EnableCORS {
		s.engine.Use(middleware.CORS())
	}
}

func (s *Server) registerHealthCheck() {
	s.engine.GET("/health", s.healthCheck)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   s.config.Environment,
		"games":     len(s.arcade.Games()),
		"listeners": s.feed.Listeners(),
	})
}

// registerGameRoutes registers the game API
//
// Flow: HTTP Request -> GameHandler -> session.Controller -> remote game service
//
// Routes registered:
//   - GET    /api/games                          -> GameHandler.ListGames
//   - GET    /api/games/{code}/session           -> GameHandler.GetSession
//   - POST   /api/games/{code}/load              -> GameHandler.Load
//   - POST   /api/games/{code}/start             -> GameHandler.Start
//   - POST   /api/games/{code}/actions           -> GameHandler.Act
//   - POST   /api/games/{code}/ack               -> GameHandler.Acknowledge
//   - POST   /api/games/{code}/retry             -> GameHandler.Retry
//   - POST   /api/games/{code}/forfeit           -> GameHandler.Forfeit
//   - POST   /api/games/{code}/cancel            -> GameHandler.Cancel
//   - POST   /api/games/{code}/reconcile         -> GameHandler.Reconcile
//   - POST   /api/games/{code}/abandon           -> GameHandler.Abandon
//   - GET    /api/games/{code}/stats             -> GameHandler.GetStats
//   - DELETE /api/games/{code}/stats/visible     -> GameHandler.ResetVisibleStats
//   - DELETE /api/games/{code}/stats             -> GameHandler.ResetAllStats
//   - GET    /api/games/{code}/frames            -> FrameHandler.Stream (WebSocket)
func (s *Server) registerGameRoutes() {
	api := s.engine.Group("/api")
	if s.config.Bridge.JWTSecret != "" {
		api.Use(auth.JWTMiddleware(auth.DefaultJWTConfig(s.config.Bridge.JWTSecret), s.logger))
	}

	// The frame stream is long lived and stays outside the request timeout
	api.GET("/games/:code/frames", s.frameHandler.Stream)

	games := api.Group("/games", middleware.Timeout(s.requestTimeout()))
	{
		games.GET("", s.gameHandler.ListGames)

		game := games.Group("/:code")
		game.GET("/session", s.gameHandler.GetSession)
		game.POST("/load", s.gameHandler.Load)
		game.POST("/start", s.gameHandler.Start)
		game.POST("/actions", s.gameHandler.Act)
		game.POST("/ack", s.gameHandler.Acknowledge)
		game.POST("/retry", s.gameHandler.Retry)
		game.POST("/forfeit", s.gameHandler.Forfeit)
		game.POST("/cancel", s.gameHandler.Cancel)
		game.POST("/reconcile", s.gameHandler.Reconcile)
		game.POST("/abandon", s.gameHandler.Abandon)
		game.GET("/stats", s.gameHandler.GetStats)
		game.DELETE("/stats/visible", s.gameHandler.ResetVisibleStats)
		game.DELETE("/stats", s.gameHandler.ResetAllStats)
	}
}

// requestTimeout leaves the remote call its full budget plus headroom
func (s *Server) requestTimeout() time.Duration {
	timeout := s.config.Service.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return timeout + 5*time.Second
}

// Router returns the Gin engine
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// OnShutdown registers a function to be called on shutdown
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.RunWithContext(ctx)
}

// RunWithContext starts the HTTP server and shuts it down when ctx is done
func (s *Server) RunWithContext(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Bridge.Port),
		Handler:      s.engine,
		ReadTimeout:  s.config.Bridge.ReadTimeout,
		WriteTimeout: s.config.Bridge.WriteTimeout,
		IdleTimeout:  s.config.Bridge.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().
			Int("port", s.config.Bridge.Port).
			Str("environment", s.config.Environment).
			Msg("Starting HTTP bridge")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

func (s *Server) shutdown() error {
	s.logger.Info().Msg("Shutting down bridge...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fn := range s.onShutdown {
		fn()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error during bridge shutdown")
		return err
	}
	if err := s.arcade.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing arcade")
		return err
	}

	s.logger.Info().Msg("Bridge shutdown complete")
	return nil
}
