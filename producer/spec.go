package producer

import (
	"fmt"
	"reflect"
	"strconv"
)

// FactorySpec describes how to build a service. The set of variants is
// closed: ClassName, Callable (and Func), Bound, ObjectMethod, Service and
// ServiceMethod.
type FactorySpec interface {
	fmt.Stringer
	// factory resolves the spec into its callable form. The error text names
	// the unusable factory; the resolver adds the service and the error kind.
	factory(classes *ClassRegistry, c Container) (Factory, error)
}

type classFactory struct{ name string }

// ClassName refers to a class registered in a ClassRegistry whose zero-arg
// instance is a Factory. Lookup happens when the Producer is invoked.
func ClassName(name string) FactorySpec { return classFactory{name: name} }

func (s classFactory) String() string { return strconv.Quote(s.name) }

func (s classFactory) factory(classes *ClassRegistry, _ Container) (Factory, error) {
	ctor, ok := classes.Lookup(s.name)
	if !ok {
		return nil, fmt.Errorf("factory of type %s", s)
	}
	instance := ctor()
	f, ok := asFactory(instance)
	if !ok {
		return nil, fmt.Errorf("factory of type %s (%s)", s, describe(instance))
	}
	return f, nil
}

type callableFactory struct{ f Factory }

// Callable uses f directly; it is called with (container, requestedName).
func Callable(f Factory) FactorySpec { return callableFactory{f: f} }

// Func is Callable for a plain function.
func Func(fn func(c Container, requestedName string) (any, error)) FactorySpec {
	if fn == nil {
		return callableFactory{}
	}
	return callableFactory{f: FactoryFunc(fn)}
}

func (s callableFactory) String() string { return describe(s.f) }

func (s callableFactory) factory(*ClassRegistry, Container) (Factory, error) {
	if s.f == nil {
		return nil, fmt.Errorf("factory of type %s", s)
	}
	return s.f, nil
}

type boundFactory struct{ fn func() (any, error) }

// Bound wraps a callable that already carries everything it needs. Its
// result is surfaced unchanged.
func Bound(fn func() (any, error)) FactorySpec { return boundFactory{fn: fn} }

func (s boundFactory) String() string { return describe(s.fn) }

func (s boundFactory) factory(*ClassRegistry, Container) (Factory, error) {
	if s.fn == nil {
		return nil, fmt.Errorf("factory of type %s", s)
	}
	return FactoryFunc(func(Container, string) (any, error) { return s.fn() }), nil
}

type methodFactory struct {
	object any
	method string
}

// ObjectMethod calls object.method(container, requestedName). The method
// must have the signature func(Container, string) (any, error) and be in the
// method set of object's dynamic type.
func ObjectMethod(object any, method string) FactorySpec {
	return methodFactory{object: object, method: method}
}

func (s methodFactory) String() string { return describeMethod(s.object, s.method) }

func (s methodFactory) factory(*ClassRegistry, Container) (Factory, error) {
	m, ok := lookupMethod(s.object, s.method)
	if !ok {
		return nil, fmt.Errorf("factory method %s", s)
	}
	fn, ok := m.Interface().(func(Container, string) (any, error))
	if !ok {
		return nil, fmt.Errorf("factory method %s (%s)", s, m.Type())
	}
	return FactoryFunc(fn), nil
}

type serviceSpecFactory struct {
	service string
	method  string
}

// Service uses the Factory stored in the container under service. The
// container is consulted each time the Producer runs, and a failed lookup is
// returned unchanged.
func Service(service string) FactorySpec { return serviceSpecFactory{service: service} }

// ServiceMethod calls method on the object stored in the container under
// service, like ObjectMethod.
func ServiceMethod(service, method string) FactorySpec {
	return serviceSpecFactory{service: service, method: method}
}

func (s serviceSpecFactory) String() string {
	if s.method == "" {
		return "@" + s.service
	}
	return "@" + s.service + "::" + s.method
}

func (s serviceSpecFactory) factory(classes *ClassRegistry, c Container) (Factory, error) {
	object, err := c.Get(s.service)
	if err != nil {
		return nil, passThrough{err}
	}
	if s.method != "" {
		return methodFactory{object: object, method: s.method}.factory(classes, c)
	}
	f, ok := asFactory(object)
	if !ok {
		return nil, fmt.Errorf("factory service %q (%s)", s.service, describe(object))
	}
	return f, nil
}

// Detach splits an object-backed spec into its object and a spec that finds
// the same object in the container under service. Specs that carry no object
// (class names, plain functions and bound callables) are not detachable.
func Detach(spec FactorySpec, service string) (object any, detached FactorySpec, ok bool) {
	switch s := spec.(type) {
	case callableFactory:
		if _, isFunc := s.f.(FactoryFunc); isFunc || s.f == nil {
			return nil, spec, false
		}
		return s.f, Service(service), true
	case methodFactory:
		if s.object == nil {
			return nil, spec, false
		}
		return s.object, ServiceMethod(service, s.method), true
	}
	return nil, spec, false
}

// passThrough carries an error that must reach the caller unchanged.
type passThrough struct{ err error }

func (p passThrough) Error() string { return p.err.Error() }
func (p passThrough) Unwrap() error { return p.err }

// lookupMethod finds a bound method value on object.
func lookupMethod(object any, method string) (reflect.Value, bool) {
	if object == nil || method == "" {
		return reflect.Value{}, false
	}
	m := reflect.ValueOf(object).MethodByName(method)
	return m, m.IsValid()
}

// describe renders a value the way error messages refer to it.
func describe(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}

func describeMethod(object any, method string) string {
	return describe(object) + "::" + method
}
