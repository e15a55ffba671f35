package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/access"
	"github.com/Togather-Foundation/eventhub/internal/backend"
	"github.com/Togather-Foundation/eventhub/internal/blob"
	"github.com/Togather-Foundation/eventhub/internal/catalog"
	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/session"
	"github.com/Togather-Foundation/eventhub/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the wiring shared by every command that talks to a source.
type app struct {
	cfg             config.Config
	logger          zerolog.Logger
	sessions        *session.Manager
	images          *blob.Resolver
	metricsFile     string
	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}

	logger := config.NewLogger(cfg.Logging)
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	images, err := blob.NewResolver(cfg.Backend.ImageBaseURL)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	sessions := session.NewManager(session.NewStore(cfg.Session.Path, logger), logger)
	if err := sessions.Init(); err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	metricsFile := cfg.Metrics.TextfilePath
	if opts.metricsFile != "" {
		metricsFile = opts.metricsFile
	}

	return &app{
		cfg:             cfg,
		logger:          logger,
		sessions:        sessions,
		images:          images,
		metricsFile:     metricsFile,
		shutdownTracing: shutdownTracing,
	}, nil
}

// runWithApp builds the app, runs fn and always flushes telemetry.
func runWithApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("tracing shutdown error")
		}
	}
	if a.metricsFile != "" {
		if err := metrics.WriteTextfile(a.metricsFile); err != nil {
			a.logger.Warn().Err(err).Str("path", a.metricsFile).Msg("failed to write metrics file")
		}
	}
}

// authorize asks the access gate about route for the current session.
func (a *app) authorize(route access.Route) error {
	current := a.sessions.Current()
	decision := access.CanAccess(current, route)
	if decision.Allowed {
		return nil
	}
	a.logger.Info().
		Str("route", route.String()).
		Str("role", session.RoleOf(current).String()).
		Str("decision", decision.String()).
		Msg("navigation refused")
	return accessError{Route: route, Redirect: decision.Redirect}
}

func (a *app) eventRepository(naturalDates bool) *events.Repository {
	client := backend.NewClient(a.cfg.Backend.BaseURL, a.logger,
		backend.WithTimeout(a.cfg.Backend.Timeout),
		backend.WithLocation(a.cfg.Backend.Location()),
		backend.WithCredential(a.sessions.Credential),
	)
	return events.NewRepository(client, a.logger,
		events.WithValidator(events.NewDraftValidator(a.cfg.Backend.Location(), naturalDates)),
	)
}

func (a *app) catalogAdapter() *catalog.Adapter {
	return catalog.NewAdapter(a.cfg.Catalog.BaseURL, a.logger,
		catalog.WithPath(a.cfg.Catalog.Path),
		catalog.WithTimeout(a.cfg.Catalog.Timeout),
		catalog.WithRateLimit(a.cfg.Catalog.RateLimit),
	)
}

// accessError is a refused navigation. Redirect is where the session belongs.
type accessError struct {
	Route    access.Route
	Redirect access.Route
}

func (e accessError) Error() string {
	switch {
	case e.Redirect == access.RouteLogin:
		return fmt.Sprintf("%s requires an admin session; run 'eventhub login' first", e.Route)
	case e.Route == access.RouteLogin || e.Route == access.RouteRegister:
		return "already logged in; run 'eventhub logout' first"
	default:
		return fmt.Sprintf("%s is not available; go to %s", e.Route, e.Redirect)
	}
}
