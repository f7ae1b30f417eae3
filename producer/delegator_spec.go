package producer

import (
	"fmt"
	"strconv"
)

// DelegatorSpec describes one delegator layer. Like FactorySpec the set of
// variants is closed: DelegatorClass, DelegatorCallable (and DelegatorFn),
// DelegatorBound, DelegatorObjectMethod, DelegatorService and
// DelegatorServiceMethod.
type DelegatorSpec interface {
	fmt.Stringer
	delegator(classes *ClassRegistry, c Container) (Delegator, error)
}

type classDelegator struct{ name string }

// DelegatorClass refers to a registered class whose zero-arg instance is a
// Delegator. Lookup happens when the layer is invoked.
func DelegatorClass(name string) DelegatorSpec { return classDelegator{name: name} }

func (s classDelegator) String() string { return strconv.Quote(s.name) }

func (s classDelegator) delegator(classes *ClassRegistry, _ Container) (Delegator, error) {
	ctor, ok := classes.Lookup(s.name)
	if !ok {
		return nil, fmt.Errorf("delegator class %s", s)
	}
	instance := ctor()
	d, ok := asDelegator(instance)
	if !ok {
		return nil, fmt.Errorf("delegator class %s (%s)", s, describe(instance))
	}
	return d, nil
}

type callableDelegator struct{ d Delegator }

// DelegatorCallable uses d directly.
func DelegatorCallable(d Delegator) DelegatorSpec { return callableDelegator{d: d} }

// DelegatorFn is DelegatorCallable for a plain function.
func DelegatorFn(fn func(c Container, requestedName string, next Producer) (any, error)) DelegatorSpec {
	if fn == nil {
		return callableDelegator{}
	}
	return callableDelegator{d: DelegatorFunc(fn)}
}

func (s callableDelegator) String() string { return describe(s.d) }

func (s callableDelegator) delegator(*ClassRegistry, Container) (Delegator, error) {
	if s.d == nil {
		return nil, fmt.Errorf("delegator %s", s)
	}
	return s.d, nil
}

type boundDelegator struct{ fn func(next Producer) (any, error) }

// DelegatorBound wraps a delegator that already carries its container and
// service name and only needs the next producer.
func DelegatorBound(fn func(next Producer) (any, error)) DelegatorSpec {
	return boundDelegator{fn: fn}
}

func (s boundDelegator) String() string { return describe(s.fn) }

func (s boundDelegator) delegator(*ClassRegistry, Container) (Delegator, error) {
	if s.fn == nil {
		return nil, fmt.Errorf("delegator %s", s)
	}
	return DelegatorFunc(func(_ Container, _ string, next Producer) (any, error) {
		return s.fn(next)
	}), nil
}

type methodDelegator struct {
	object any
	method string
}

// DelegatorObjectMethod calls object.method(container, requestedName, next).
// The method must have the signature func(Container, string, Producer) (any, error).
func DelegatorObjectMethod(object any, method string) DelegatorSpec {
	return methodDelegator{object: object, method: method}
}

func (s methodDelegator) String() string { return describeMethod(s.object, s.method) }

func (s methodDelegator) delegator(*ClassRegistry, Container) (Delegator, error) {
	m, ok := lookupMethod(s.object, s.method)
	if !ok {
		return nil, fmt.Errorf("delegator method %s", s)
	}
	fn, ok := m.Interface().(func(Container, string, Producer) (any, error))
	if !ok {
		return nil, fmt.Errorf("delegator method %s (%s)", s, m.Type())
	}
	return DelegatorFunc(fn), nil
}

type serviceDelegator struct {
	service string
	method  string
}

// DelegatorService uses the Delegator stored in the container under service.
func DelegatorService(service string) DelegatorSpec {
	return serviceDelegator{service: service}
}

// DelegatorServiceMethod calls method on the object stored in the container
// under service, like DelegatorObjectMethod.
func DelegatorServiceMethod(service, method string) DelegatorSpec {
	return serviceDelegator{service: service, method: method}
}

func (s serviceDelegator) String() string {
	if s.method == "" {
		return "@" + s.service
	}
	return "@" + s.service + "::" + s.method
}

func (s serviceDelegator) delegator(classes *ClassRegistry, c Container) (Delegator, error) {
	object, err := c.Get(s.service)
	if err != nil {
		return nil, passThrough{err}
	}
	if s.method != "" {
		return methodDelegator{object: object, method: s.method}.delegator(classes, c)
	}
	d, ok := asDelegator(object)
	if !ok {
		return nil, fmt.Errorf("delegator service %q (%s)", s.service, describe(object))
	}
	return d, nil
}

// DetachDelegator is Detach for delegator specs.
func DetachDelegator(spec DelegatorSpec, service string) (object any, detached DelegatorSpec, ok bool) {
	switch s := spec.(type) {
	case callableDelegator:
		if _, isFunc := s.d.(DelegatorFunc); isFunc || s.d == nil {
			return nil, spec, false
		}
		return s.d, DelegatorService(service), true
	case methodDelegator:
		if s.object == nil {
			return nil, spec, false
		}
		return s.object, DelegatorServiceMethod(service, s.method), true
	}
	return nil, spec, false
}
