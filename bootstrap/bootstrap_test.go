package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/diconfig/config"
	"github.com/kbukum/diconfig/dependencies"
	"github.com/kbukum/diconfig/di"
	apperrors "github.com/kbukum/diconfig/errors"
	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/producer"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

type mailer struct{ from string }

type tracingMailer struct{ inner any }

type mailerTracer struct{}

func (*mailerTracer) Delegate(_ producer.Container, _ string, next producer.Producer) (any, error) {
	inner, err := next()
	if err != nil {
		return nil, err
	}
	return &tracingMailer{inner: inner}, nil
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func testClasses() *producer.ClassRegistry {
	classes := producer.NewClassRegistry()
	producer.RegisterType[mailer](classes)
	producer.RegisterType[mailerTracer](classes)
	return classes
}

func newTestApp(t *testing.T, cfg *testConfig, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithClasses(testClasses())}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	app.Summary.SetOutput(&bytes.Buffer{})
	return app
}

func TestNewApp(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	app, err := NewApp(cfg, WithoutSummary())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Container == nil {
		t.Fatal("expected non-nil container")
	}
	if app.Logger == nil {
		t.Error("expected non-nil logger")
	}
	// Config is typed
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected cfg.Name 'test-svc', got %q", app.Cfg.Name)
	}
}

func TestNewAppRegistersBuiltins(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	app := newTestApp(t, cfg)

	if got, err := di.Resolve[*testConfig](app.Container, di.Pkg.Config); err != nil || got != cfg {
		t.Errorf("expected config under %q, got %v (%v)", di.Pkg.Config, got, err)
	}
	if got, err := di.Resolve[*logger.Logger](app.Container, di.Pkg.Logger); err != nil || got != app.Logger {
		t.Errorf("expected logger under %q, got %v (%v)", di.Pkg.Logger, got, err)
	}
	if got, err := di.Resolve[*di.Container](app.Container, di.Pkg.Container); err != nil || got != app.Container {
		t.Errorf("expected container under %q, got %v (%v)", di.Pkg.Container, got, err)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{
		ServiceConfig: config.ServiceConfig{
			// Name is empty, should fail validation
			Environment: "development",
		},
	}
	_, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	if !apperrors.IsInvalidConfiguration(err) {
		t.Errorf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestNewAppWithOptions(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	container := di.NewContainer(di.WithLogger(logger.Nop()))
	app := newTestApp(t, cfg,
		WithGracefulTimeout(30*time.Second),
		WithContainer(container),
	)

	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if app.Container != container {
		t.Error("expected custom container")
	}
}

func TestDefaultGracefulTimeout(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s, got %v", app.gracefulTimeout)
	}
}

func TestLifecycleOrder(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	var order []string
	record := func(name string) Hook {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app.OnStart(record("start"))
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		order = append(order, "configure")
		if a.Container.Compiled() {
			t.Error("expected container to be open during configure")
		}
		return nil
	})
	app.OnReady(func(ctx context.Context) error {
		order = append(order, "ready")
		if !app.Container.Compiled() {
			t.Error("expected container to be compiled when ready")
		}
		return nil
	})
	app.OnStop(record("stop"))

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := "start,configure,ready,task,stop"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestMultipleHooks(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	count := 0
	hook := func(ctx context.Context) error { count++; return nil }
	app.OnStart(hook, hook, hook)

	if err := runHooks(context.Background(), app.onStart); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 hooks run, got %d", count)
	}
}

func TestHookErrorStopsExecution(t *testing.T) {
	ran := false
	hooks := []Hook{
		func(ctx context.Context) error { return fmt.Errorf("boom") },
		func(ctx context.Context) error { ran = true; return nil },
	}

	err := runHooks(context.Background(), hooks)
	if err == nil || err.Error() != "hook 0 failed: boom" {
		t.Errorf("expected 'hook 0 failed: boom', got %v", err)
	}
	if ran {
		t.Error("expected later hooks to be skipped")
	}
}

func TestRunTaskAppliesDependencies(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"), WithDependencies(dependencies.Dependencies{
		Invokables: map[string]string{"mailer": producer.TypeName[mailer]()},
		Delegators: map[string][]producer.DelegatorSpec{
			producer.TypeName[mailer](): {producer.DelegatorClass(producer.TypeName[mailerTracer]())},
		},
	}))

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		m, err := di.Resolve[*tracingMailer](app.Container, "mailer")
		if err != nil {
			return err
		}
		if _, ok := m.inner.(*mailer); !ok {
			return fmt.Errorf("expected *mailer inside, got %T", m.inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if len(app.Summary.Sources()) != 1 {
		t.Errorf("expected one tracked source, got %v", app.Summary.Sources())
	}
}

func TestRunTaskAppliesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependencies.yaml")
	doc := fmt.Sprintf("version: 1\ninvokables:\n  mailer: %s\ndelegators:\n  %s: [%s]\n",
		producer.TypeName[mailer](), producer.TypeName[mailer](), producer.TypeName[mailerTracer]())
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := newTestConfig("test", "1.0")
	cfg.Dependencies.File = path
	app := newTestApp(t, cfg)

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		_, err := di.Resolve[*tracingMailer](app.Container, "mailer")
		return err
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	sources := app.Summary.Sources()
	if len(sources) != 1 || sources[0].Kind != "document" || sources[0].Entries != 2 {
		t.Errorf("unexpected sources %v", sources)
	}
}

func TestConfigureDecoratesCallbackServices(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"), WithDependencies(dependencies.Dependencies{
		Delegators: map[string][]producer.DelegatorSpec{
			"mailer": {producer.DelegatorClass(producer.TypeName[mailerTracer]())},
		},
	}))
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		return a.Container.Set("mailer", &mailer{from: "ops@example.com"})
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		m, err := di.Resolve[*tracingMailer](app.Container, "mailer")
		if err != nil {
			return err
		}
		if inner := m.inner.(*mailer); inner.from != "ops@example.com" {
			return fmt.Errorf("unexpected inner mailer %+v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
}

func TestServicesAsSynthetic(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Dependencies.ServicesAsSynthetic = true
	app := newTestApp(t, cfg, WithDependencies(dependencies.Dependencies{
		Services: map[string]any{"mailer": &mailer{}},
	}))

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if !app.Container.IsSynthetic("mailer") {
			return fmt.Errorf("expected mailer to be synthetic")
		}
		if _, err := app.Container.Get("mailer"); !apperrors.HasCode(err, apperrors.ErrCodeSyntheticService) {
			return fmt.Errorf("expected SYNTHETIC_SERVICE, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
}

func TestRunTaskConfigureErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		cb   func(ctx context.Context, a *App[*testConfig]) error
	}{
		{
			name: "undeclared delegator target",
			opts: []Option{WithDependencies(dependencies.Dependencies{
				Delegators: map[string][]producer.DelegatorSpec{"ghost": {producer.DelegatorClass("x")}},
			})},
		},
		{
			name: "dangling alias",
			opts: []Option{WithDependencies(dependencies.Dependencies{
				Aliases: map[string]string{"a": "missing"},
			})},
		},
		{
			name: "callback error",
			cb: func(ctx context.Context, a *App[*testConfig]) error {
				return apperrors.InvalidConfiguration("bad callback")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, newTestConfig("test", "1.0"), tt.opts...)
			if tt.cb != nil {
				app.OnConfigure(tt.cb)
			}
			taskRan := false

			err := app.RunTask(context.Background(), func(ctx context.Context) error {
				taskRan = true
				return nil
			})
			if err == nil || !strings.Contains(err.Error(), "configuration failed") {
				t.Fatalf("expected configuration failure, got %v", err)
			}
			if !apperrors.IsInvalidConfiguration(err) {
				t.Errorf("expected INVALID_CONFIGURATION in chain, got %v", err)
			}
			if taskRan {
				t.Error("expected task not to run")
			}
		})
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Errorf("expected 'task error', got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunTaskHookErrors(t *testing.T) {
	failing := func(ctx context.Context) error { return fmt.Errorf("hook broke") }
	tests := []struct {
		name     string
		register func(app *App[*testConfig])
		contains string
	}{
		{"start", func(app *App[*testConfig]) { app.OnStart(failing) }, "onStart hook failed"},
		{"ready", func(app *App[*testConfig]) { app.OnReady(failing) }, "onReady hook failed"},
		{"stop", func(app *App[*testConfig]) { app.OnStop(failing) }, "hook broke"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, newTestConfig("test", "1.0"))
			tt.register(app)

			err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
			if err == nil || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	rec := &closeRecorder{}
	app := newTestApp(t, newTestConfig("test", "1.0"), WithDependencies(dependencies.Dependencies{
		Factories: map[string]producer.FactorySpec{
			"db": producer.Bound(func() (any, error) { return rec, nil }),
		},
	}))

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := app.Container.Register("late", func() (any, error) { return 1, nil }); !apperrors.HasCode(err, apperrors.ErrCodeContainerFrozen) {
		t.Errorf("expected CONTAINER_FROZEN after start, got %v", err)
	}
	if _, err := app.Container.Get("db"); err != nil {
		t.Fatal(err)
	}

	if logger.Get("di") != logger.Get("di") {
		t.Error("expected the di logger to be registered while running")
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !rec.closed {
		t.Error("expected built services to be closed on shutdown")
	}
	if logger.Get("di") == logger.Get("di") {
		t.Error("expected the di logger to be unregistered on shutdown")
	}
}

func TestWaitForSignalContextCancellation(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if sig := app.WaitForSignal(ctx); sig != nil {
		t.Errorf("expected nil signal on cancellation, got %v", sig)
	}
}

func TestSummaryDisplaySummary(t *testing.T) {
	c := di.NewContainer(di.WithLogger(logger.Nop()))
	if err := c.Register("mailer", func() (any, error) { return &mailer{}, nil }); err != nil {
		t.Fatal(err)
	}
	if err := c.Register("job", func() (any, error) { return &mailer{}, nil }, di.Shared(false), di.Private()); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSynthetic("request"); err != nil {
		t.Fatal(err)
	}
	if err := c.Alias("mail", "mailer"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("mailer"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	s := NewSummary("svc", "1.2.3")
	s.SetOutput(&buf)
	s.SetStartupDuration(1500 * time.Millisecond)
	s.TrackTelemetry("telemetry", "disabled", false)
	s.TrackSource("dependencies.yaml", "document", 4)
	s.DisplaySummary(c)

	out := buf.String()
	for _, want := range []string{
		"svc v1.2.3 started in 1.50s",
		"dependencies.yaml [document] (4 entries)",
		"✅ mailer (shared)",
		"⚡ job (prototype, private)",
		"⏸️ request (synthetic)",
		"🔗 mail → mailer",
		"(1 built)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestSummaryEmptyContainer(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary("svc", "1.0")
	s.SetOutput(&buf)
	s.DisplaySummary(di.NewContainer(di.WithLogger(logger.Nop())))

	if !strings.Contains(buf.String(), "No services registered") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if got := treePrefix(0, 2); got != "├──" {
		t.Errorf("expected ├──, got %s", got)
	}
	if got := treePrefix(1, 2); got != "└──" {
		t.Errorf("expected └──, got %s", got)
	}
}
