package dependencies

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/diconfig/di"
	apperrors "github.com/kbukum/diconfig/errors"
	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/observability"
	"github.com/kbukum/diconfig/producer"
	"github.com/kbukum/diconfig/validation"
)

// InnerSuffix is appended to the name of a service that was already in the
// container when delegators were declared for it.
const InnerSuffix = ".inner"

// FactoryServiceName names the synthetic service holding the factory object
// of name when services are configured as synthetic.
func FactoryServiceName(name string) string {
	return "diconfig." + name + ".factory.service"
}

// DelegatorServiceName names the synthetic service holding the i-th
// delegator object of name when services are configured as synthetic.
func DelegatorServiceName(name string, i int) string {
	return "diconfig." + name + ".delegator." + strconv.Itoa(i) + ".service"
}

// Config applies a dependency map to a container.
type Config struct {
	Dependencies Dependencies
	// ServicesAsSynthetic declares services, and the objects behind object
	// factories and delegators, as synthetic services. Their values must be
	// supplied with Set before they are resolved.
	ServicesAsSynthetic bool
	// Classes resolves class names. Nil means producer.Classes.
	Classes *producer.ClassRegistry
	// Logger defaults to the "dependencies" logger.
	Logger *logger.Logger
}

// NewContainer creates a container with opts and configures it with cfg.
// The container is returned open, so more services can be added before
// Compile.
func NewContainer(cfg *Config, opts ...di.Option) (*di.Container, error) {
	c := di.NewContainer(opts...)
	if err := cfg.Configure(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure registers every entry of the map in c. The map is checked as a
// whole before anything is registered; all problems are reported together as
// one INVALID_CONFIGURATION error.
func (cfg *Config) Configure(c *di.Container) error {
	return cfg.ConfigureContext(context.Background(), c)
}

// ConfigureContext is Configure with a parent context for its span.
func (cfg *Config) ConfigureContext(ctx context.Context, c *di.Container) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanConfigure)
	span.SetAttributes(attribute.String(observability.AttrContainerID, c.ID()))
	defer func() { observability.EndSpan(span, err) }()

	log := cfg.Logger
	if log == nil {
		log = logger.Get("dependencies")
	}
	log = log.WithContext(ctx).WithFields(map[string]interface{}{logger.FieldContainerID: c.ID()})

	if err := cfg.check(c); err != nil {
		log.Debug("dependency map rejected", logger.ErrorFields("configure", err))
		return err
	}

	b := &builder{
		cfg:       cfg,
		deps:      cfg.Dependencies,
		c:         c,
		resolver:  producer.NewResolver(cfg.Classes),
		producers: make(map[string]producer.Producer),
		shared:    make(map[string]bool),
	}
	if err := b.apply(); err != nil {
		return err
	}

	log.Debug("dependencies configured", logger.Fields(
		"services", len(cfg.Dependencies.Services),
		"invokables", len(cfg.Dependencies.Invokables),
		"factories", len(cfg.Dependencies.Factories),
		"aliases", len(cfg.Dependencies.Aliases),
		"delegators", len(cfg.Dependencies.Delegators),
	))
	return nil
}

// check validates the map against itself and the container.
func (cfg *Config) check(c *di.Container) error {
	d := cfg.Dependencies
	v := validation.New()

	for _, name := range sortedKeys(d.Services) {
		v.Required("services", name)
	}
	for _, key := range sortedKeys(d.Invokables) {
		v.Required("invokables", key)
		v.Required("invokables."+key, d.Invokables[key])
	}
	for _, name := range sortedKeys(d.Factories) {
		v.Required("factories", name)
		v.Custom(d.Factories[name] != nil, "factories."+name, "has no factory")
	}
	for _, alias := range sortedKeys(d.Aliases) {
		v.Required("aliases", alias)
		v.Required("aliases."+alias, d.Aliases[alias])
		v.Custom(alias != d.Aliases[alias], "aliases."+alias, "cannot target itself")
	}
	for _, name := range sortedKeys(d.Shared) {
		_, isFactory := d.Factories[name]
		isInvokable := false
		for key, class := range d.Invokables {
			isInvokable = isInvokable || key == name || class == name
		}
		v.Custom(isFactory || isInvokable, "shared."+name, "applies only to invokables and factories")
	}

	for _, name := range sortedKeys(d.Delegators) {
		field := "delegators." + name
		switch {
		case d.aliases(name) || (!d.declares(name) && c.IsAlias(name)):
			v.AddErrorf(field, "%q is an alias; declare delegators on the service it targets", name)
		case d.declares(name):
			_, isService := d.Services[name]
			v.Custom(!(isService && cfg.ServicesAsSynthetic), field, "synthetic services cannot have delegators")
		case c.Has(name):
			v.Custom(!c.Has(name+InnerSuffix), field, fmt.Sprintf("%q is already defined", name+InnerSuffix))
		default:
			v.AddErrorf(field, "service %q is not declared", name)
		}
		for i, spec := range d.Delegators[name] {
			v.Custom(spec != nil, fmt.Sprintf("%s[%d]", field, i), "has no delegator")
		}
	}

	return v.Err()
}

// builder registers one checked map.
type builder struct {
	cfg       *Config
	deps      Dependencies
	c         *di.Container
	resolver  *producer.Resolver
	producers map[string]producer.Producer
	shared    map[string]bool
}

func (b *builder) apply() error {
	steps := []func() error{
		b.services,
		b.invokables,
		b.factories,
		b.delegators,
		b.register,
		b.aliases,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) services() error {
	for _, name := range sortedKeys(b.deps.Services) {
		if b.cfg.ServicesAsSynthetic {
			if err := b.c.SetSynthetic(name); err != nil {
				return err
			}
			continue
		}
		if _, decorated := b.deps.Delegators[name]; decorated {
			instance := b.deps.Services[name]
			b.producers[name] = func() (any, error) { return instance, nil }
			b.shared[name] = true
			continue
		}
		if err := b.c.Set(name, b.deps.Services[name]); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) invokables() error {
	for _, key := range sortedKeys(b.deps.Invokables) {
		class := b.deps.Invokables[key]
		b.producers[class] = b.resolver.MakeProducer(b.c, class, producer.Bound(b.instantiate(class, key)))
		b.shared[class] = b.deps.shared(class, key)
	}
	return nil
}

// instantiate builds class with its registered zero-arg constructor.
func (b *builder) instantiate(class, name string) func() (any, error) {
	classes := b.resolver.Classes()
	return func() (any, error) {
		ctor, ok := classes.Lookup(class)
		if !ok {
			return nil, apperrors.ServiceNotFound(
				fmt.Sprintf("invokable class %q for service %q not found", class, name), nil,
			).WithDetails(map[string]any{
				apperrors.DetailService: name,
				apperrors.DetailLayer:   producer.LayerFactory,
				apperrors.DetailSpec:    strconv.Quote(class),
			})
		}
		return ctor(), nil
	}
}

func (b *builder) factories() error {
	for _, name := range sortedKeys(b.deps.Factories) {
		spec := b.deps.Factories[name]
		if b.cfg.ServicesAsSynthetic {
			if _, detached, ok := producer.Detach(spec, FactoryServiceName(name)); ok {
				if err := b.c.SetSynthetic(FactoryServiceName(name)); err != nil {
					return err
				}
				spec = detached
			}
		}
		b.producers[name] = b.resolver.MakeProducer(b.c, name, spec)
		b.shared[name] = b.deps.shared(name)
	}
	return nil
}

func (b *builder) delegators() error {
	for _, name := range sortedKeys(b.deps.Delegators) {
		specs, err := b.delegatorSpecs(name)
		if err != nil {
			return err
		}

		if base, declared := b.producers[name]; declared {
			b.producers[name] = b.resolver.MakeDelegatedProducer(specs, b.c, name, base)
			continue
		}

		// Already in the container: keep the original under another name and
		// resolve it through the container.
		inner := name + InnerSuffix
		opts := []di.RegisterOption{di.Shared(b.c.IsShared(name))}
		if b.c.IsPrivate(name) {
			opts = append(opts, di.Private())
		}
		if err := b.c.Rename(name, inner); err != nil {
			return err
		}
		final := b.resolver.MakeDelegatedProducer(specs, b.c, name, producer.ContainerProducer(b.c, inner))
		if err := b.c.Register(name, final, opts...); err != nil {
			return err
		}
	}
	return nil
}

// delegatorSpecs returns the layers of name. With synthetic services, each
// object-backed layer is replaced by a lookup of its synthetic service.
func (b *builder) delegatorSpecs(name string) ([]producer.DelegatorSpec, error) {
	specs := b.deps.Delegators[name]
	if !b.cfg.ServicesAsSynthetic {
		return specs, nil
	}
	out := make([]producer.DelegatorSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec
		_, detached, ok := producer.DetachDelegator(spec, DelegatorServiceName(name, i))
		if !ok {
			continue
		}
		if err := b.c.SetSynthetic(DelegatorServiceName(name, i)); err != nil {
			return nil, err
		}
		out[i] = detached
	}
	return out, nil
}

func (b *builder) register() error {
	for _, name := range sortedKeys(b.producers) {
		if err := b.c.Register(name, b.producers[name], di.Shared(b.shared[name])); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) aliases() error {
	for _, key := range sortedKeys(b.deps.Invokables) {
		if class := b.deps.Invokables[key]; class != key {
			if err := b.c.Alias(key, class); err != nil {
				return err
			}
		}
	}
	for _, alias := range sortedKeys(b.deps.Aliases) {
		if err := b.c.Alias(alias, b.deps.Aliases[alias]); err != nil {
			return err
		}
	}
	return nil
}
