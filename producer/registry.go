package producer

import (
	"reflect"
	"sort"
	"sync"
)

// Constructor instantiates a class with no arguments.
type Constructor func() any

// ClassRegistry maps class names to zero-argument constructors. It stands in
// for dynamic class loading: a ClassName spec can only be resolved when its
// name has been registered here.
type ClassRegistry struct {
	mu      sync.RWMutex
	classes map[string]Constructor
}

// NewClassRegistry creates an empty ClassRegistry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for name. A nil ctor removes name.
func (r *ClassRegistry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctor == nil {
		delete(r.classes, name)
		return
	}
	r.classes[name] = ctor
}

// Lookup returns the constructor registered for name.
func (r *ClassRegistry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.classes[name]
	return ctor, ok
}

// Has reports whether name is registered.
func (r *ClassRegistry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the sorted names of all registered classes.
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classes is the registry used by the package-level functions.
var Classes = NewClassRegistry()

// RegisterClass registers ctor under name in the global registry.
func RegisterClass(name string, ctor Constructor) {
	Classes.Register(name, ctor)
}

// TypeName returns the class name used for T, e.g. "app.MailerFactory".
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// RegisterType registers new(T) under TypeName[T] in r and returns the name.
func RegisterType[T any](r *ClassRegistry) string {
	name := TypeName[T]()
	r.Register(name, func() any { return new(T) })
	return name
}
