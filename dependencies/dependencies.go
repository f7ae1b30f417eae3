package dependencies

import (
	"maps"
	"slices"

	"github.com/kbukum/diconfig/producer"
)

// Dependencies is a declarative dependency map.
type Dependencies struct {
	// Services are ready instances keyed by service name.
	Services map[string]any
	// Invokables map a service name to a registered class built with its
	// zero-arg constructor. A name different from the class registers the
	// class under its own name plus an alias.
	Invokables map[string]string
	// Factories map a service name to the factory that builds it.
	Factories map[string]producer.FactorySpec
	// Aliases map an alias to its target service.
	Aliases map[string]string
	// Delegators list, outermost first, the layers wrapped around a service.
	Delegators map[string][]producer.DelegatorSpec
	// Shared overrides SharedByDefault per invokable or factory.
	Shared map[string]bool
	// SharedByDefault applies to services without a Shared entry. Nil means true.
	SharedByDefault *bool
}

// declares reports whether name is built by this map.
func (d Dependencies) declares(name string) bool {
	if _, ok := d.Services[name]; ok {
		return true
	}
	if _, ok := d.Factories[name]; ok {
		return true
	}
	for _, class := range d.Invokables {
		if class == name {
			return true
		}
	}
	return false
}

// aliases reports whether name is an alias declared by this map, including
// the implicit alias of an invokable registered under another name.
func (d Dependencies) aliases(name string) bool {
	if _, ok := d.Aliases[name]; ok {
		return true
	}
	class, ok := d.Invokables[name]
	return ok && class != name
}

func (d Dependencies) shared(names ...string) bool {
	for _, name := range names {
		if shared, ok := d.Shared[name]; ok {
			return shared
		}
	}
	if d.SharedByDefault != nil {
		return *d.SharedByDefault
	}
	return true
}

// Merge combines maps in order. Later entries replace earlier ones with the
// same name, except delegators, which are appended.
func Merge(deps ...Dependencies) Dependencies {
	var out Dependencies
	for _, d := range deps {
		out.Services = mergeMap(out.Services, d.Services)
		out.Invokables = mergeMap(out.Invokables, d.Invokables)
		out.Factories = mergeMap(out.Factories, d.Factories)
		out.Aliases = mergeMap(out.Aliases, d.Aliases)
		out.Shared = mergeMap(out.Shared, d.Shared)
		for name, specs := range d.Delegators {
			if out.Delegators == nil {
				out.Delegators = make(map[string][]producer.DelegatorSpec)
			}
			out.Delegators[name] = append(slices.Clone(out.Delegators[name]), specs...)
		}
		if d.SharedByDefault != nil {
			v := *d.SharedByDefault
			out.SharedByDefault = &v
		}
	}
	return out
}

func mergeMap[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// sortedKeys returns the keys of m in order, for deterministic registration.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
