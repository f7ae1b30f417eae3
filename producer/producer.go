package producer

// Container is the lookup side of the host container, handed to every
// factory and delegator.
type Container interface {
	Get(name string) (any, error)
}

// ContainerFunc adapts a lookup function to the Container interface.
type ContainerFunc func(name string) (any, error)

// Get calls f(name).
func (f ContainerFunc) Get(name string) (any, error) { return f(name) }

// Producer builds a service value on demand. Each call is one attempt to
// build; nothing is cached.
type Producer func() (any, error)

// Factory builds the service registered under requestedName.
type Factory interface {
	Create(c Container, requestedName string) (any, error)
}

// FactoryFunc adapts an ordinary function to the Factory interface.
type FactoryFunc func(c Container, requestedName string) (any, error)

// Create calls f(c, requestedName).
func (f FactoryFunc) Create(c Container, requestedName string) (any, error) {
	return f(c, requestedName)
}

// Delegator wraps the value produced by next. It may return that value,
// decorate it, or return something else entirely.
type Delegator interface {
	Delegate(c Container, requestedName string, next Producer) (any, error)
}

// DelegatorFunc adapts an ordinary function to the Delegator interface.
type DelegatorFunc func(c Container, requestedName string, next Producer) (any, error)

// Delegate calls f(c, requestedName, next).
func (f DelegatorFunc) Delegate(c Container, requestedName string, next Producer) (any, error) {
	return f(c, requestedName, next)
}

// asFactory reports whether a freshly instantiated class can act as a factory.
func asFactory(v any) (Factory, bool) {
	switch f := v.(type) {
	case Factory:
		return f, f != nil
	case func(Container, string) (any, error):
		return FactoryFunc(f), f != nil
	default:
		return nil, false
	}
}

// asDelegator reports whether a freshly instantiated class can act as a delegator.
func asDelegator(v any) (Delegator, bool) {
	switch d := v.(type) {
	case Delegator:
		return d, d != nil
	case func(Container, string, Producer) (any, error):
		return DelegatorFunc(d), d != nil
	default:
		return nil, false
	}
}
