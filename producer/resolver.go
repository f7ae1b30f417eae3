package producer

import (
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/kbukum/diconfig/errors"
)

// Layer names reported in error details.
const (
	LayerFactory   = "factory"
	LayerContainer = "container"
)

// DelegatorLayer returns the layer name of the delegator at index i.
func DelegatorLayer(i int) string {
	return "delegator[" + strconv.Itoa(i) + "]"
}

// Resolver builds Producers, resolving ClassName specs against its registry.
// A Resolver has no mutable state of its own and may be shared freely. The
// zero value resolves against the global Classes registry.
type Resolver struct {
	classes *ClassRegistry
}

// NewResolver creates a Resolver over classes. A nil registry means the
// global Classes registry.
func NewResolver(classes *ClassRegistry) *Resolver {
	if classes == nil {
		classes = Classes
	}
	return &Resolver{classes: classes}
}

// DefaultResolver resolves against the global Classes registry.
var DefaultResolver = NewResolver(Classes)

// Classes returns the registry the resolver looks classes up in.
func (r *Resolver) Classes() *ClassRegistry {
	if r.classes == nil {
		return Classes
	}
	return r.classes
}

// MakeProducer binds spec to c and requestedName. It never fails: whether
// spec can actually build anything is only checked when the Producer runs.
func (r *Resolver) MakeProducer(c Container, requestedName string, spec FactorySpec) Producer {
	if b, ok := spec.(boundFactory); ok && b.fn != nil {
		return b.fn
	}
	return func() (any, error) {
		if spec == nil {
			return nil, notCallable("factory <nil>", requestedName, LayerFactory, nil)
		}
		f, err := spec.factory(r.Classes(), c)
		if err != nil {
			return nil, unresolved(err, requestedName, LayerFactory, spec)
		}
		return f.Create(c, requestedName)
	}
}

// MakeDelegatedProducer wraps base in the delegators described by specs.
// specs[0] is the outermost layer: invoking the result calls specs[0] with a
// next Producer that runs specs[1], and so on down to base. With no specs,
// base is returned unchanged.
//
// The chain is built once, here; each layer resolves its own spec every time
// it runs. A layer that fails leaves the side effects of the layers that
// already ran in place.
func (r *Resolver) MakeDelegatedProducer(specs []DelegatorSpec, c Container, requestedName string, base Producer) Producer {
	if len(specs) == 0 {
		return base
	}
	if base == nil {
		base = func() (any, error) {
			return nil, apperrors.ServiceNotFound(
				fmt.Sprintf("service %q has no producer to delegate to", requestedName), nil,
			).WithDetails(map[string]any{
				apperrors.DetailService: requestedName,
				apperrors.DetailLayer:   LayerFactory,
			})
		}
	}

	next := base
	for i := len(specs) - 1; i >= 0; i-- {
		l := &layer{
			resolver:  r,
			index:     i,
			spec:      specs[i],
			container: c,
			name:      requestedName,
			next:      next,
		}
		next = l.produce
	}
	return next
}

// layer is one immutable link of a delegator chain.
type layer struct {
	resolver  *Resolver
	index     int
	spec      DelegatorSpec
	container Container
	name      string
	next      Producer
}

func (l *layer) produce() (any, error) {
	if l.spec == nil {
		return nil, notCallable("delegator <nil>", l.name, DelegatorLayer(l.index), nil)
	}
	d, err := l.spec.delegator(l.resolver.Classes(), l.container)
	if err != nil {
		return nil, unresolved(err, l.name, DelegatorLayer(l.index), l.spec)
	}
	return d.Delegate(l.container, l.name, l.next)
}

// ContainerProducer returns a Producer that fetches requestedName from c.
// Any failure, including a panic, is re-raised as SERVICE_NOT_FOUND with the
// original failure kept as the cause.
func ContainerProducer(c Container, requestedName string) Producer {
	return func() (instance any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				instance, err = nil, lookupFailed(requestedName, panicError(rec))
			}
		}()
		instance, err = c.Get(requestedName)
		if err != nil {
			return nil, lookupFailed(requestedName, err)
		}
		return instance, nil
	}
}

func lookupFailed(requestedName string, cause error) error {
	return apperrors.ServiceNotFound(
		fmt.Sprintf("service %q could not be resolved through the %s layer", requestedName, LayerContainer), cause,
	).WithDetails(map[string]any{
		apperrors.DetailService: requestedName,
		apperrors.DetailLayer:   LayerContainer,
	})
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}

// unresolved reports a spec that could not be turned into a callable.
// Container lookups made on behalf of the spec surface unchanged.
func unresolved(err error, requestedName, layerName string, spec fmt.Stringer) error {
	var pt passThrough
	if errors.As(err, &pt) {
		return pt.err
	}
	return notCallable(err.Error(), requestedName, layerName, spec)
}

func notCallable(subject, requestedName, layerName string, spec fmt.Stringer) error {
	err := apperrors.ServiceNotFound(
		fmt.Sprintf("%s for service %q not found or not callable (%s)", subject, requestedName, layerName), nil,
	).WithDetails(map[string]any{
		apperrors.DetailService: requestedName,
		apperrors.DetailLayer:   layerName,
	})
	if spec != nil {
		err.WithDetail(apperrors.DetailSpec, spec.String())
	}
	return err
}

// MakeProducer calls DefaultResolver.MakeProducer.
func MakeProducer(c Container, requestedName string, spec FactorySpec) Producer {
	return DefaultResolver.MakeProducer(c, requestedName, spec)
}

// MakeDelegatedProducer calls DefaultResolver.MakeDelegatedProducer.
func MakeDelegatedProducer(specs []DelegatorSpec, c Container, requestedName string, base Producer) Producer {
	return DefaultResolver.MakeDelegatedProducer(specs, c, requestedName, base)
}
