// Package bootstrap wires a service around a dependency container.
//
// An App loads nothing by itself: it takes a typed config (usually filled by
// config.LoadConfig), initializes logging and telemetry, applies dependency
// maps and the document named by dependencies.file, then compiles the
// container.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithDependencies(deps))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.OnReady(func(ctx context.Context) error {
//	    mailer, err := di.Resolve[*Mailer](app.Container, "mailer")
//	    ...
//	})
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Lifecycle: telemetry → OnStart hooks → OnConfigure callbacks → dependency
// maps → Compile → OnReady hooks → wait for a signal → OnStop hooks →
// container Close → telemetry flush.
package bootstrap
