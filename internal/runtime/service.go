package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/csvflow/internal/convert"
	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/envelope"
	configpkg "github.com/drblury/csvflow/internal/runtime/config"
	errspkg "github.com/drblury/csvflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/csvflow/internal/runtime/logging"
	"github.com/drblury/csvflow/transport"
	_ "github.com/drblury/csvflow/transport/transports"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
type ServiceDependencies struct {
	// Converter is built from the configuration when nil.
	Converter *convert.Converter
	// Samples are loaded from Config.SampleFile when nil. Ignored when the
	// supplied Converter is already initialised.
	Samples []*envelope.Envelope
	// Interceptors run after the configured normalizers, for example a
	// pseudonymizer. Ignored when Converter is supplied.
	Interceptors []intercept.Interceptor

	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.

	// TransportBuilder replaces the registry lookup on Config.PubSubSystem.
	TransportBuilder transport.Builder
	ErrorClassifier  ErrorClassifier
	// Registerer receives the Prometheus collectors; defaults to the
	// Prometheus default registerer.
	Registerer prometheus.Registerer
	Hooks      ConversionHooks
}

// Service hosts the converter on a Watermill router: envelopes are consumed
// from Config.ConsumeQueue and results are published to Config.PublishQueue.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	converter *convert.Converter
	metrics   *ConversionMetrics
	hooks     ConversionHooks

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	wmLogger   watermill.LoggerAdapter
	registerer prometheus.Registerer

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	errorClassifier ErrorClassifier
	resourceTracker *resourceTracker
}

// NewService is TryNewService that panics on error.
func NewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(ctx, conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService validates the configuration, initialises the converter from
// the sample envelopes, builds the transport and registers the converter
// handler. Call Start to begin consuming.
func TryNewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := errspkg.NewConfigValidationError(conf.Validate()); err != nil {
		return nil, err
	}
	if conf.ConsumeQueue == "" {
		return nil, errspkg.ErrConsumeQueueRequired
	}
	if conf.PublishQueue == "" {
		return nil, errspkg.ErrPublishQueueRequired
	}

	log.Info("Creating csvflow service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"config":        conf.String(),
	})

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	s := &Service{
		Conf:            conf,
		Logger:          log,
		hooks:           deps.Hooks,
		wmLogger:        wmLogger,
		registerer:      deps.Registerer,
		errorClassifier: deps.ErrorClassifier,
		resourceTracker: newResourceTracker(),
	}
	if s.registerer == nil {
		s.registerer = prometheus.DefaultRegisterer
	}

	converter, err := s.prepareConverter(deps)
	if err != nil {
		return nil, err
	}
	s.converter = converter

	if conf.MetricsEnabled {
		s.metrics = NewConversionMetrics(s.registerer)
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("csvflow: register metrics: %w", err)
		}
	}

	build := deps.TransportBuilder
	if build == nil {
		build = transport.Build
	}
	t, err := build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("csvflow: build transport %q: %w", conf.PubSubSystem, err)
	}
	s.publisher = t.Publisher
	s.subscriber = t.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	if err := s.registerConverterHandler(); err != nil {
		return nil, err
	}
	s.registerIntrospection()

	return s, nil
}

func (s *Service) prepareConverter(deps ServiceDependencies) (*convert.Converter, error) {
	c := deps.Converter
	if c == nil {
		var err error
		c, err = convert.NewFromConfig(s.Conf, s.Logger, deps.Interceptors...)
		if err != nil {
			return nil, err
		}
	}
	if c.Initialised() {
		return c, nil
	}

	samples := deps.Samples
	if samples == nil && s.Conf.SampleFile != "" {
		var err error
		samples, err = envelope.LoadSamples(s.Conf.SampleFile)
		if err != nil {
			return nil, err
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %w", errspkg.ErrSamplesRequired, convert.ErrNoSamples)
	}
	if err := c.Init(samples); err != nil {
		return nil, err
	}
	return c, nil
}

// Converter returns the initialised converter.
func (s *Service) Converter() *convert.Converter {
	return s.converter
}

// Publisher exposes the transport publisher, for example to feed envelopes
// into the consume queue in tests.
func (s *Service) Publisher() message.Publisher {
	return s.publisher
}

// Subscriber exposes the transport subscriber.
func (s *Service) Subscriber() message.Subscriber {
	return s.subscriber
}

// Running is closed once the router is running.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Start runs the underlying Watermill router until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	servers := s.startHTTPServers()
	defer shutdownHTTPServers(servers)
	return routerRun(s.router, ctx)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("csvflow: register middleware %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) getErrorClassifier() ErrorClassifier {
	if s.errorClassifier == nil {
		return defaultErrorClassifier
	}
	return s.errorClassifier
}

func (s *Service) getResourceTracker() *resourceTracker {
	if s.resourceTracker == nil {
		s.resourceTracker = newResourceTracker()
	}
	return s.resourceTracker
}

// RegisterHTTPHandler serves handler under pattern on the given port once
// Start is called.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() []*http.Server {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	servers := make([]*http.Server, 0, len(s.httpServers))
	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, srv)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("HTTP server failed", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
	}
	return servers
}

func shutdownHTTPServers(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(ctx)
	}
}

// Close stops the router and closes the transport.
func (s *Service) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Close())
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.subscriber != nil {
		errs = append(errs, s.subscriber.Close())
	}
	return errors.Join(errs...)
}
