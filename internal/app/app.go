// Package app assembles the console client from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/songzhibin97/adminconsole/internal/config"
	"github.com/songzhibin97/adminconsole/internal/credential"
	"github.com/songzhibin97/adminconsole/internal/gateway"
	stdoutlog "github.com/songzhibin97/adminconsole/internal/log/driver/stdout"
	prommetrics "github.com/songzhibin97/adminconsole/internal/metrics/driver/prometheus"
	"github.com/songzhibin97/adminconsole/internal/normalize"
	"github.com/songzhibin97/adminconsole/internal/resource"
	"github.com/songzhibin97/adminconsole/internal/session"
	storefactory "github.com/songzhibin97/adminconsole/internal/store"
	"github.com/songzhibin97/adminconsole/internal/tracing"
	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
	"github.com/songzhibin97/adminconsole/pkg/metrics"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

// Version is reported to the tracer.
const Version = "v1.0.0"

// Option customizes an App.
type Option func(*options)

type options struct {
	logOutput  io.Writer
	navigator  session.Navigator
	httpClient *http.Client
	store      store.Store
}

// WithLogOutput sends log entries to w.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithNavigator sets where logout and forced expiry navigate.
func WithNavigator(n session.Navigator) Option {
	return func(o *options) { o.navigator = n }
}

// WithHTTPClient overrides the gateway's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStore uses backend instead of the configured store.
func WithStore(backend store.Store) Option {
	return func(o *options) { o.store = backend }
}

// App is the assembled console client.
type App struct {
	Config      *config.Config
	Logger      log.Logger
	Credentials *credential.Store
	Gateway     *gateway.Client
	Auth        *gateway.AuthClient
	Session     *session.Manager

	store         store.Store
	metrics       metrics.Recorder
	tracer        *tracing.TracerProvider
	metricsServer *http.Server
	unsubscribe   func()

	users        *gateway.Resource[console.User]
	missions     *gateway.Resource[console.Mission]
	protocols    *gateway.Resource[console.Protocol]
	mentors      *gateway.Resource[console.Mentor]
	careerFields *gateway.Resource[console.CareerField]
}

// New wires every component of the console from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logConfig := stdoutlog.DefaultConfig()
	logConfig.Level = log.ParseLevel(cfg.Logging.Level)
	logConfig.Development = cfg.Logging.Development
	logConfig.Output = o.logOutput
	logger, err := stdoutlog.New(logConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		metrics: metrics.Nop(),
	}

	a.tracer, err = tracing.NewTracerProvider(&cfg.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	if cfg.Metrics.Enabled {
		recorder, err := prommetrics.NewRecorder(prommetrics.Options{Namespace: cfg.Metrics.Namespace})
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
		}
		a.metrics = recorder
		if cfg.Metrics.Address != "" {
			if err := a.serveMetrics(recorder); err != nil {
				return nil, err
			}
		}
	}

	a.store = o.store
	if a.store == nil {
		a.store, err = storefactory.New(&cfg.Store)
		if err != nil {
			a.shutdownObservability()
			return nil, fmt.Errorf("failed to create %s store: %w", cfg.Store.Type, err)
		}
	}
	if err := a.checkStore(o.store == nil); err != nil {
		a.shutdownObservability()
		return nil, err
	}
	logger.Debug("credential store ready", log.String(log.FieldDriver, cfg.Store.Type))

	a.Credentials = credential.New(a.store,
		credential.WithKeys(cfg.Session.TokenKey, cfg.Session.UserKey),
		credential.WithLogger(logger),
	)

	a.Gateway, err = gateway.New(gateway.Options{
		BaseURL:    cfg.API.BaseURL,
		Prefix:     cfg.API.Prefix,
		Timeout:    cfg.API.Timeout,
		HTTPClient: o.httpClient,
		Tokens:     a.Credentials,
		Logger:     logger,
		Metrics:    a.metrics,
	})
	if err != nil {
		a.closeStore()
		a.shutdownObservability()
		return nil, err
	}

	ep := cfg.API.Endpoints
	a.Auth = gateway.NewAuthClient(a.Gateway, gateway.AuthEndpoints{
		Login:   ep.Login,
		Logout:  ep.Logout,
		Profile: ep.Profile,
	})

	a.Session, err = session.NewManager(session.Options{
		Auth:           a.Auth,
		Credentials:    a.Credentials,
		Navigator:      o.navigator,
		PrivilegedRole: console.Role(cfg.Session.PrivilegedRole),
		LoginPath:      cfg.Session.LoginPath,
		Logger:         logger,
		Metrics:        a.metrics,
	})
	if err != nil {
		a.closeStore()
		a.shutdownObservability()
		return nil, err
	}
	a.unsubscribe = a.Gateway.OnSessionExpired(a.Session.HandleExpired)

	a.users = gateway.NewResource[console.User](a.Gateway, normalize.Users, gateway.ResourceEndpoint{Path: ep.Users, CreatePath: ep.Register, Paginated: true})
	a.missions = gateway.NewResource[console.Mission](a.Gateway, normalize.Missions, gateway.ResourceEndpoint{Path: ep.Missions, Paginated: true})
	a.protocols = gateway.NewResource[console.Protocol](a.Gateway, normalize.Protocols, gateway.ResourceEndpoint{Path: ep.Protocols, Paginated: true})
	a.mentors = gateway.NewResource[console.Mentor](a.Gateway, normalize.Mentors, gateway.ResourceEndpoint{Path: ep.Mentors, Paginated: true})
	a.careerFields = gateway.NewResource[console.CareerField](a.Gateway, normalize.CareerFields, gateway.ResourceEndpoint{Path: ep.CareerFields})

	logger.Info("console ready",
		log.String("base_url", cfg.API.BaseURL),
		log.String(log.FieldDriver, cfg.Store.Type),
		log.Bool("metrics", cfg.Metrics.Enabled),
		log.Bool("tracing", a.tracer.IsEnabled()),
	)
	return a, nil
}

// Users opens a controller for the users page.
func (a *App) Users() *resource.Controller[console.User] {
	return newController(a, a.users, "users")
}

// Missions opens a controller for the missions page.
func (a *App) Missions() *resource.Controller[console.Mission] {
	return newController(a, a.missions, "missions")
}

// Protocols opens a controller for the protocols page.
func (a *App) Protocols() *resource.Controller[console.Protocol] {
	return newController(a, a.protocols, "protocols")
}

// Mentors opens a controller for the mentors page.
func (a *App) Mentors() *resource.Controller[console.Mentor] {
	return newController(a, a.mentors, "mentors")
}

// CareerFields opens a controller for the career field lookup.
func (a *App) CareerFields() *resource.Controller[console.CareerField] {
	return newController(a, a.careerFields, "career-fields")
}

func newController[T console.Entity](a *App, source resource.Source[T], name string) *resource.Controller[T] {
	return resource.NewController[T](source, resource.Options{
		Name:     name,
		PageSize: a.Config.Console.PageSize,
		Logger:   a.Logger,
		Metrics:  a.metrics,
	})
}

// Metrics returns the recorder shared by every component.
func (a *App) Metrics() metrics.Recorder {
	return a.metrics
}

// Close releases the store and flushes observability.
func (a *App) Close(ctx context.Context) error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s, ok := a.Logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return errors.Join(errs...)
}

func (a *App) serveMetrics(recorder *prommetrics.Recorder) error {
	path := a.Config.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, recorder.Handler())

	listener, err := net.Listen("tcp", a.Config.Metrics.Address)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", a.Config.Metrics.Address, err)
	}

	a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server error", log.Error(err))
		}
	}()
	return nil
}

// checkStore refuses to start over a store that cannot hold the session.
// Stores created here are closed on failure.
func (a *App) checkStore(owned bool) error {
	timeout := a.Config.Store.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	health := a.store.Health(ctx)
	if health.Status == store.StatusHealthy {
		return nil
	}
	if owned {
		a.closeStore()
	}
	return fmt.Errorf("credential store %s is %s: %s", a.Config.Store.Type, health.Status, health.Message)
}

func (a *App) closeStore() {
	if err := a.store.Close(); err != nil {
		a.Logger.Warn("failed to close store", log.Error(err))
	}
}

func (a *App) shutdownObservability() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.metricsServer != nil {
		_ = a.metricsServer.Shutdown(ctx)
	}
	_ = a.tracer.Shutdown(ctx)
}
