package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"latidos/assistant"
	"latidos/config"
	"latidos/controller"
	"latidos/database"
	"latidos/gateway"
	"latidos/gemini"
	"latidos/handlers"
	"latidos/metrics"
	"latidos/models"
	"latidos/rabbitmq"
	"latidos/stubllm"
	"latidos/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = time.Minute

// Service wires the store, the model gateway and the session controllers behind the
// HTTP router.
type Service struct {
	config   *config.Config
	hub      *websocket.Hub
	sessions *controller.Manager
	router   *gin.Engine
	closers  []io.Closer
}

// NewService builds every component from cfg. Optional backends that fail to come up
// are logged and left out.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	metrics.Register()

	s := &Service{config: cfg}

	store, err := s.newStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	gen, chat := newGenerator(ctx, cfg)
	gw := gateway.New(gen, gateway.Options{
		TextModel:  cfg.GeminiModel,
		ImageModel: cfg.GeminiImageModel,
		City:       cfg.CityName,
	})

	s.hub = websocket.NewHub()

	deps := controller.Deps{
		Store:    store,
		AI:       gw,
		Notifier: s.hub,
		NewAssistant: func() *assistant.Assistant {
			if !chat {
				return assistant.New(nil)
			}
			return assistant.New(gw)
		},
		NewID:             uuid.NewString,
		DefaultLocation:   models.GeoPoint{Lat: cfg.CityLat, Lng: cfg.CityLng},
		BackgroundTimeout: cfg.AITimeout,
	}

	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, report events will not be published")
		} else {
			deps.Publisher = publisher
			s.closers = append(s.closers, publisher)
		}
	}

	s.sessions = controller.NewManager(deps, cfg.SessionTTL)
	s.router = handlers.SetupRouter(handlers.NewHandlers(s.sessions, s.hub), cfg)
	return s, nil
}

func (s *Service) newStore(ctx context.Context) (database.Repository, error) {
	seed, err := database.LoadSeed(s.config.SeedFile)
	if err != nil {
		return nil, err
	}

	switch s.config.StoreBackend {
	case "memory", "":
		log.Infof("Using in-memory report store with %d seed reports", len(seed))
		return database.NewMemoryStore(seed), nil
	case "mysql":
		store, err := database.NewMySQLStore(s.config)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if err := store.Seed(ctx, seed); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.config.StoreBackend)
	}
}

// newGenerator picks the model backend. The second result reports whether the
// assistant can chat.
func newGenerator(ctx context.Context, cfg *config.Config) (gateway.Generator, bool) {
	if cfg.UseStub() {
		log.Info("Using stub model, no network calls will be made")
		return stubllm.NewClient(), true
	}
	gen, err := gemini.NewGenerator(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Gemini unavailable, AI features will fail")
		return gemini.Disabled{}, false
	}
	return gen, true
}

// Router returns the HTTP handler of the service.
func (s *Service) Router() http.Handler {
	return s.router
}

// Run serves HTTP and the background loops until ctx is done, then shuts everything
// down gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.sessions.Sweep()
			}
		}
	})

	g.Go(func() error {
		log.Infof("Starting HTTP server on port %s", s.config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.sessions.Wait()
		s.hub.Stop()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the store and publisher connections.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
