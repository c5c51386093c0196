package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	apicontract "github.com/tuanvumaihuynh/inventory-api/api-contract"
	"github.com/tuanvumaihuynh/inventory-api/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-api/internal/config"
	"github.com/tuanvumaihuynh/inventory-api/internal/http/apierr"
	"github.com/tuanvumaihuynh/inventory-api/internal/http/metric"
	"github.com/tuanvumaihuynh/inventory-api/internal/http/middleware"
	"github.com/tuanvumaihuynh/inventory-api/internal/http/swagger"
	"github.com/tuanvumaihuynh/inventory-api/internal/service"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg     config.HTTP
	logger  *slog.Logger
	metrics *metric.Metrics

	verifier      middleware.TokenVerifier
	healthChecker db.HealthChecker
	productSvc    service.ProductService
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	verifier middleware.TokenVerifier,
	healthChecker db.HealthChecker,
	productSvc service.ProductService,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        log.With(slog.String("service", "http")),
		metrics:       metric.New(),
		verifier:      verifier,
		healthChecker: healthChecker,
		productSvc:    productSvc,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	r, err := s.Router(ctx)
	if err != nil {
		return nil, err
	}

	return s.RunWithServer(ctx, r)
}

// Router builds the complete route tree with all middlewares applied.
func (s *Service) Router(ctx context.Context) (chi.Router, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		doc, err := apicontract.Load(ctx)
		if err != nil {
			return nil, err
		}
		if err := swagger.Register(r, doc); err != nil {
			return nil, fmt.Errorf("register swagger: %w", err)
		}
	}

	s.RegisterHandlers(r)

	return r, nil
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
		}
	}()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CORSAllowedOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := newProductHandler(s.productSvc)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.verifier, s.logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handle(h.ListProducts))
			r.Post("/", s.handle(h.CreateProduct))
			r.Get("/{id}", s.handle(h.GetProduct))
			r.Put("/{id}", s.handle(h.UpdateProduct))
			r.Delete("/{id}", s.handle(h.DeleteProduct))
		})
	})

	r.Get("/healthz", s.handle(s.healthz))

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}))
}

// handlerFunc is an http.HandlerFunc that returns its error instead of
// writing it.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 && res.StatusCode != http.StatusNotFound {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

func (s *Service) healthz(w http.ResponseWriter, r *http.Request) error {
	if ok, err := s.healthChecker.IsHealthy(r.Context()); !ok || err != nil {
		return apperr.ServiceUnavailableErr.WrapParent(err)
	}

	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v before touching w, so an encoding failure can still be
// reported as an error response.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(append(body, '\n'))
	return nil
}
