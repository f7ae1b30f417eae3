package bootstrap

import (
	"time"

	"github.com/kbukum/diconfig/dependencies"
	"github.com/kbukum/diconfig/di"
	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/producer"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	container       *di.Container
	classes         *producer.ClassRegistry
	dependencies    []dependencies.Dependencies
	gracefulTimeout *time.Duration
	quiet           bool
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is auto-initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithContainer sets a custom DI container for the application.
func WithContainer(c *di.Container) Option {
	return func(o *appOptions) {
		o.container = c
	}
}

// WithClasses sets the registry class names in dependency maps resolve
// against. Defaults to producer.Classes.
func WithClasses(r *producer.ClassRegistry) Option {
	return func(o *appOptions) {
		o.classes = r
	}
}

// WithDependencies adds dependency maps. They are merged in order, followed
// by the document named in the config.
func WithDependencies(deps ...dependencies.Dependencies) Option {
	return func(o *appOptions) {
		o.dependencies = append(o.dependencies, deps...)
	}
}

// WithoutSummary suppresses the startup summary.
func WithoutSummary() Option {
	return func(o *appOptions) {
		o.quiet = true
	}
}
