package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/diconfig/dependencies"
	"github.com/kbukum/diconfig/di"
	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/observability"
	"github.com/kbukum/diconfig/producer"
)

// App represents a generic application with uniform lifecycle management.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.ServiceConfig automatically satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&myConfig)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    return a.Container.Set("smtp.config", a.Cfg.SMTP)
//	})
//	app.Run(context.Background())
type App[C Config] struct {
	Name      string
	Version   string
	Cfg       C
	Container *di.Container
	Logger    *logger.Logger
	Summary   *Summary

	classes         *producer.ClassRegistry
	dependencies    []dependencies.Dependencies
	gracefulTimeout time.Duration
	quiet           bool
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	// shutdowns flush telemetry providers, in reverse order.
	shutdowns []func(context.Context) error
}

// componentLoggers are registered by NewApp under these names.
var componentLoggers = []string{"di", "dependencies"}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// registers the config, logger and container under di.Pkg names.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		classes:         o.classes,
		dependencies:    o.dependencies,
		gracefulTimeout: 15 * time.Second,
		quiet:           o.quiet,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	// Component loggers share the app logger until the app stops.
	for _, name := range componentLoggers {
		logger.Register(name, app.Logger.WithComponent(name))
	}

	app.Container = o.container
	if app.Container == nil {
		containerOpts := []di.Option{di.WithLogger(logger.Get("di"))}
		if base.Tracing.Enabled {
			// The global meter delegates to the provider installed at startup.
			metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
			if err != nil {
				return nil, fmt.Errorf("container metrics: %w", err)
			}
			containerOpts = append(containerOpts, di.WithMetrics(metrics))
		}
		app.Container = di.NewContainer(containerOpts...)
	}

	builtins := map[string]any{
		di.Pkg.Config:    cfg,
		di.Pkg.Logger:    app.Logger,
		di.Pkg.Container: app.Container,
	}
	for name, instance := range builtins {
		if err := app.Container.Set(name, instance); err != nil {
			return nil, fmt.Errorf("registering %s: %w", name, err)
		}
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// OnConfigure registers a callback to run during the configure phase, before
// dependency maps are applied. Use it to put services into the container
// that the maps decorate or refer to.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Run executes the full application lifecycle for long-running services:
// Initialize → OnStart hooks → Configure → OnReady hooks →
// Block on signal → OnStop hooks → Graceful Shutdown.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop()
}

// RunTask executes a finite task with the full bootstrap lifecycle.
// Unlike Run(), it does not block on shutdown signals: it runs the task
// function and shuts down when the task completes or the context is
// canceled (e.g., via SIGINT/SIGTERM).
//
// Example:
//
//	app, _ := bootstrap.NewApp(&cfg)
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return di.MustResolve[*Importer](app.Container, "importer").Run(ctx)
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}

	return taskErr
}

// Start runs the startup sequence without blocking. Pair it with Shutdown
// when managing your own lifecycle.
func (a *App[C]) Start(ctx context.Context) error {
	return a.startup(ctx)
}

// startup performs the common initialization sequence shared by Run and RunTask.
func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":         a.Name,
		"version":      a.Version,
		"container_id": a.Container.ID(),
	})

	// Phase 1: Initialize telemetry
	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	// Phase 2: Configure the container
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	if !a.quiet {
		a.DisplaySummary()
	}

	return nil
}

// initialize installs the tracer and meter providers when tracing is enabled (Phase 1).
func (a *App[C]) initialize(ctx context.Context) error {
	base := a.Cfg.GetServiceConfig()
	tel := base.Tracing
	if !tel.Enabled {
		a.Summary.TrackTelemetry("telemetry", "disabled", false)
		return nil
	}

	a.Logger.Info("Phase 1: Initializing telemetry", map[string]interface{}{
		"endpoint": tel.Endpoint,
	})

	tp, err := observability.InitTracer(ctx, tel.TracerConfig(base.Name, base.Version, base.Environment))
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, tp.Shutdown)

	mp, err := observability.InitMeter(ctx, tel.MeterConfig(base.Name, base.Version, base.Environment))
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, mp.Shutdown)

	a.Summary.TrackTelemetry("otlp", tel.Endpoint, true)
	a.Logger.Info("Phase 1: Telemetry initialized")
	return nil
}

// configure runs configuration callbacks, applies the dependency maps and
// compiles the container (Phase 2).
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) > 0 {
		a.Logger.Info("Phase 2: Running configuration callbacks", map[string]interface{}{
			"count": len(a.onConfigure),
		})
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}

	deps, err := a.collectDependencies()
	if err != nil {
		return err
	}

	depCfg := &dependencies.Config{
		Dependencies:        deps,
		ServicesAsSynthetic: a.Cfg.GetServiceConfig().Dependencies.ServicesAsSynthetic,
		Classes:             a.classes,
		Logger:              logger.Get("dependencies"),
	}
	if err := depCfg.ConfigureContext(ctx, a.Container); err != nil {
		return err
	}
	if err := a.Container.Compile(); err != nil {
		return err
	}

	a.Logger.Info("Phase 2: Container compiled", map[string]interface{}{
		logger.FieldCount: len(a.Container.Registrations()),
	})
	return nil
}

// collectDependencies merges the option maps and the configured document.
func (a *App[C]) collectDependencies() (dependencies.Dependencies, error) {
	parts := make([]dependencies.Dependencies, 0, len(a.dependencies)+1)
	for i, deps := range a.dependencies {
		parts = append(parts, deps)
		a.Summary.TrackSource(fmt.Sprintf("option #%d", i+1), "map", countEntries(deps))
	}

	if file := a.Cfg.GetServiceConfig().Dependencies.File; file != "" {
		deps, err := dependencies.Load(file)
		if err != nil {
			return dependencies.Dependencies{}, err
		}
		parts = append(parts, deps)
		a.Summary.TrackSource(file, "document", countEntries(deps))
	}

	return dependencies.Merge(parts...), nil
}

func countEntries(d dependencies.Dependencies) int {
	return len(d.Services) + len(d.Invokables) + len(d.Factories) + len(d.Aliases) + len(d.Delegators)
}

// DisplaySummary prints the startup summary with the container's current
// registrations.
func (a *App[C]) DisplaySummary() {
	a.Summary.DisplaySummary(a.Container)
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs OnStop hooks, closes the container and flushes telemetry within
// the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}

	if err := a.Container.Close(); err != nil {
		a.Logger.Error("DI container close error", logger.ErrorFields("close", err))
		errs = append(errs, err)
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			a.Logger.Error("Telemetry shutdown error", logger.ErrorFields("telemetry", err))
			errs = append(errs, err)
		}
	}
	a.shutdowns = nil

	a.Logger.Info("Application shutdown complete")
	for _, name := range componentLoggers {
		logger.Unregister(name)
	}
	return errors.Join(errs...)
}
