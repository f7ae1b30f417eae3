package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/diconfig/errors"
	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/observability"
	"github.com/kbukum/diconfig/producer"
	"github.com/kbukum/diconfig/validation"
)

// Container is a named-service container. It stores producers, follows
// aliases, caches shared instances and hands itself to factories as the
// producer.Container they resolve collaborators from.
//
// Registration is guarded by a mutex. Resolution is expected to happen on a
// single goroutine at a time: two goroutines building the same service
// concurrently may observe each other as a circular reference.
type Container struct {
	id        string
	mu        sync.RWMutex
	entries   map[string]*entry
	aliases   map[string]string
	compiled  bool
	resolving []frame

	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
}

var _ producer.Container = (*Container)(nil)

type entry struct {
	name      string
	producer  producer.Producer
	shared    bool
	synthetic bool
	private   bool
	instance  any
	built     bool
}

// frame is one service under construction.
type frame struct {
	name string
	ctx  context.Context
}

// RegistrationInfo describes a registered service or alias for introspection.
type RegistrationInfo struct {
	Key         string
	Shared      bool
	Synthetic   bool
	Private     bool
	Initialized bool
	// Target is set for aliases and names the aliased service.
	Target string
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTracer sets the tracer used for build spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Container) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics enables build metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// WithID overrides the generated container ID.
func WithID(id string) Option {
	return func(c *Container) {
		if id != "" {
			c.id = id
		}
	}
}

// NewContainer creates an empty container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		id:      uuid.NewString(),
		entries: make(map[string]*entry),
		aliases: make(map[string]string),
		tracer:  observability.Tracer(observability.InstrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("di")
	}
	c.log = c.log.WithFields(map[string]interface{}{logger.FieldContainerID: c.id})
	return c
}

// ID returns the container ID.
func (c *Container) ID() string { return c.id }

// RegisterOption configures a single registration.
type RegisterOption func(*entry)

// Shared controls instance caching. Services are shared unless told otherwise.
func Shared(shared bool) RegisterOption {
	return func(e *entry) { e.shared = shared }
}

// Private marks a service as an implementation detail. Private services
// resolve normally and are reported as such by Registrations.
func Private() RegisterOption {
	return func(e *entry) { e.private = true }
}

// Register binds name to a producer, replacing any previous definition or
// alias of the same name.
func (c *Container) Register(name string, p producer.Producer, opts ...RegisterOption) error {
	if name == "" {
		return apperrors.InvalidConfiguration("service name must not be empty")
	}
	if p == nil {
		return apperrors.InvalidConfiguration(fmt.Sprintf("service %q has no producer", name)).
			WithDetail(apperrors.DetailService, name)
	}

	e := &entry{name: name, producer: p, shared: true}
	for _, opt := range opts {
		opt(e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled {
		return apperrors.ContainerFrozen(name)
	}
	delete(c.aliases, name)
	c.entries[name] = e

	c.log.Debug("service registered", logger.Fields(
		logger.FieldService, name,
		logger.FieldShared, e.shared,
	))
	return nil
}

// Set stores a ready instance under name. On a compiled container only
// synthetic services can be set.
func (c *Container) Set(name string, instance any) error {
	if name == "" {
		return apperrors.InvalidConfiguration("service name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.entries[name]
	if c.compiled && (!ok || !existing.synthetic) {
		return apperrors.ContainerFrozen(name)
	}
	if ok && existing.synthetic {
		existing.instance = instance
		existing.built = true
		return nil
	}
	delete(c.aliases, name)
	c.entries[name] = &entry{name: name, shared: true, instance: instance, built: true}
	return nil
}

// SetSynthetic declares a service whose value is supplied later with Set.
func (c *Container) SetSynthetic(name string) error {
	if name == "" {
		return apperrors.InvalidConfiguration("service name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled {
		return apperrors.ContainerFrozen(name)
	}
	delete(c.aliases, name)
	c.entries[name] = &entry{name: name, shared: true, synthetic: true}
	return nil
}

// Alias makes alias resolve to target. The target may be registered later;
// Compile reports dangling aliases.
func (c *Container) Alias(alias, target string) error {
	if alias == "" || target == "" {
		return apperrors.InvalidConfiguration("alias and target must not be empty")
	}
	if alias == target {
		return apperrors.InvalidConfiguration(fmt.Sprintf("alias %q cannot target itself", alias)).
			WithDetail(apperrors.DetailService, alias)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled {
		return apperrors.ContainerFrozen(alias)
	}
	delete(c.entries, alias)
	c.aliases[alias] = target

	c.log.Debug("alias registered", logger.Fields(
		logger.FieldAlias, alias,
		logger.FieldService, target,
	))
	return nil
}

// Rename moves the definition oldName to newName. Aliases pointing at oldName
// are left untouched, so they follow whatever is registered there next.
func (c *Container) Rename(oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled {
		return apperrors.ContainerFrozen(newName)
	}
	e, ok := c.entries[oldName]
	if !ok {
		return apperrors.ServiceNotFound(fmt.Sprintf("cannot rename non-existent service %q", oldName), nil).
			WithDetail(apperrors.DetailService, oldName)
	}
	if c.hasLocked(newName) {
		return apperrors.InvalidConfiguration(fmt.Sprintf("cannot rename %q: %q is already defined", oldName, newName)).
			WithDetail(apperrors.DetailService, newName)
	}
	delete(c.entries, oldName)
	e.name = newName
	c.entries[newName] = e
	return nil
}

// Has reports whether name is a service or an alias.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasLocked(name)
}

func (c *Container) hasLocked(name string) bool {
	if _, ok := c.entries[name]; ok {
		return true
	}
	_, ok := c.aliases[name]
	return ok
}

// IsAlias reports whether name is an alias.
func (c *Container) IsAlias(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.aliases[name]
	return ok
}

// IsShared reports whether the service behind name, after aliases, is shared.
func (c *Container) IsShared(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookupLocked(name)
	return ok && e.shared
}

// IsSynthetic reports whether the service behind name, after aliases, is synthetic.
func (c *Container) IsSynthetic(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.lookupLocked(name)
	return ok && e.synthetic
}

// IsPrivate reports whether the service registered under name is private.
func (c *Container) IsPrivate(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return ok && e.private
}

// Definition returns the producer registered under name. Aliases, synthetic
// services and instances stored with Set have no producer.
func (c *Container) Definition(name string) (producer.Producer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || e.producer == nil {
		return nil, false
	}
	return e.producer, true
}

// Registrations returns info about all services and aliases, sorted by key.
func (c *Container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.entries)+len(c.aliases))
	for key, e := range c.entries {
		result = append(result, RegistrationInfo{
			Key:         key,
			Shared:      e.shared,
			Synthetic:   e.synthetic,
			Private:     e.private,
			Initialized: e.built,
		})
	}
	for key, target := range c.aliases {
		result = append(result, RegistrationInfo{Key: key, Target: target})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Get resolves name. It implements producer.Container, so a build triggered
// from inside a factory becomes a child of the build that called it.
func (c *Container) Get(name string) (any, error) {
	c.mu.RLock()
	ctx := c.enclosingLocked()
	c.mu.RUnlock()
	return c.GetContext(ctx, name)
}

// GetContext resolves name, starting its build span under ctx.
func (c *Container) GetContext(ctx context.Context, name string) (any, error) {
	c.mu.Lock()
	target, err := c.targetLocked(name)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	e, ok := c.entries[target]
	if !ok {
		c.mu.Unlock()
		return nil, notFound(name)
	}
	if e.built {
		instance := e.instance
		c.mu.Unlock()
		c.recordCached(ctx, target)
		return instance, nil
	}
	if e.synthetic {
		c.mu.Unlock()
		return nil, apperrors.SyntheticService(target)
	}
	if path, cyclic := c.cycleLocked(target); cyclic {
		c.mu.Unlock()
		return nil, apperrors.CircularReference(path)
	}
	c.mu.Unlock()

	return c.build(ctx, e, target)
}

func (c *Container) build(ctx context.Context, e *entry, name string) (instance any, err error) {
	ctx, span := c.tracer.Start(ctx, observability.SpanServiceGet, trace.WithAttributes(
		attribute.String(observability.AttrService, name),
		attribute.String(observability.AttrContainerID, c.id),
		attribute.Bool(observability.AttrShared, e.shared),
	))
	start := time.Now()
	if c.metrics != nil {
		c.metrics.RecordBuildStart(ctx)
	}

	c.mu.Lock()
	c.resolving = append(c.resolving, frame{name: name, ctx: ctx})
	c.mu.Unlock()

	done := false
	defer func() {
		if !done {
			err = errBuildPanicked
		}

		c.mu.Lock()
		c.popLocked(name)
		if err == nil && e.shared {
			e.instance = instance
			e.built = true
		}
		c.mu.Unlock()

		elapsed := time.Since(start)
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
			fields := logger.Fields(
				logger.FieldService, name,
				logger.FieldDuration, elapsed.Milliseconds(),
			)
			if appErr, ok := apperrors.AsAppError(err); ok {
				if layer, ok := appErr.Details[apperrors.DetailLayer]; ok {
					fields[logger.FieldLayer] = layer
				}
			}
			c.log.WithContext(ctx).WithError(err).Debug("service build failed", fields)
		}
		if c.metrics != nil {
			c.metrics.RecordBuildEnd(ctx, name, status, elapsed)
		}
		observability.EndSpan(span, err)
	}()

	instance, err = e.producer()
	done = true
	return instance, err
}

// errBuildPanicked marks a build whose producer panicked. The panic itself
// keeps unwinding to the caller.
var errBuildPanicked = errors.New("producer panicked")

func (c *Container) recordCached(ctx context.Context, name string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordBuild(ctx, name, observability.StatusCached, 0)
}

// targetLocked follows the alias chain starting at name.
func (c *Container) targetLocked(name string) (string, error) {
	seen := []string{name}
	for {
		next, ok := c.aliases[name]
		if !ok {
			return name, nil
		}
		if slices.Contains(seen, next) {
			return "", apperrors.CircularReference(append(seen, next))
		}
		seen = append(seen, next)
		name = next
	}
}

func (c *Container) lookupLocked(name string) (*entry, bool) {
	target, err := c.targetLocked(name)
	if err != nil {
		return nil, false
	}
	e, ok := c.entries[target]
	return e, ok
}

// cycleLocked returns the resolution path if name is already being built.
func (c *Container) cycleLocked(name string) ([]string, bool) {
	for i, f := range c.resolving {
		if f.name != name {
			continue
		}
		path := make([]string, 0, len(c.resolving)-i+1)
		for _, g := range c.resolving[i:] {
			path = append(path, g.name)
		}
		return append(path, name), true
	}
	return nil, false
}

func (c *Container) enclosingLocked() context.Context {
	if n := len(c.resolving); n > 0 {
		return c.resolving[n-1].ctx
	}
	return context.Background()
}

func (c *Container) popLocked(name string) {
	for i := len(c.resolving) - 1; i >= 0; i-- {
		if c.resolving[i].name == name {
			c.resolving = slices.Delete(c.resolving, i, i+1)
			return
		}
	}
}

func notFound(name string) error {
	return apperrors.ServiceNotFound(fmt.Sprintf("You have requested a non-existent service %q.", name), nil).
		WithDetail(apperrors.DetailService, name)
}

// Compile checks every alias resolves to a service and freezes registration.
// Afterwards only synthetic services accept Set.
func (c *Container) Compile() error {
	_, span := c.tracer.Start(context.Background(), observability.SpanCompile, trace.WithAttributes(
		attribute.String(observability.AttrContainerID, c.id),
	))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled {
		span.End()
		return nil
	}

	v := validation.New()
	aliases := make([]string, 0, len(c.aliases))
	for alias := range c.aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		target, err := c.targetLocked(alias)
		if err != nil {
			v.AddError("aliases."+alias, "forms a cycle")
			continue
		}
		if _, ok := c.entries[target]; !ok {
			v.AddErrorf("aliases."+alias, "targets non-existent service %q", target)
		}
	}
	if err := v.Err(); err != nil {
		observability.EndSpan(span, err)
		return err
	}

	c.compiled = true
	observability.EndSpan(span, nil)
	c.log.Info("container compiled", logger.Fields(
		logger.FieldCount, len(c.entries),
		"aliases", len(c.aliases),
	))
	return nil
}

// Compiled reports whether Compile has succeeded.
func (c *Container) Compiled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compiled
}

// Close closes every built instance that implements io.Closer, in reverse
// name order, and returns the joined errors. The container itself is skipped
// when it is registered as a service.
func (c *Container) Close() error {
	c.mu.Lock()
	closers := make([]string, 0, len(c.entries))
	for name, e := range c.entries {
		if _, ok := e.instance.(io.Closer); ok && e.built && e.instance != any(c) {
			closers = append(closers, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(closers)))
	instances := make([]io.Closer, len(closers))
	for i, name := range closers {
		instances[i] = c.entries[name].instance.(io.Closer)
	}
	c.mu.Unlock()

	var errs []error
	for i, closer := range instances {
		if err := closer.Close(); err != nil {
			c.log.Warn("service close failed", logger.Fields(
				logger.FieldService, closers[i],
				logger.FieldError, err.Error(),
			))
			errs = append(errs, fmt.Errorf("closing %s: %w", closers[i], err))
		}
	}
	return errors.Join(errs...)
}
