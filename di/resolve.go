package di

import (
	"fmt"

	"github.com/kbukum/diconfig/producer"
)

// MustResolve resolves a service with type safety, panics on error.
//
// Example:
//
//	mailer := di.MustResolve[*Mailer](c, "mailer")
func MustResolve[T any](c producer.Container, key string) T {
	result, err := Resolve[T](c, key)
	if err != nil {
		panic(err.Error())
	}
	return result
}

// Resolve resolves a service with type safety, returns error on failure.
// Resolution errors are wrapped, so errors.HasCode and friends still apply.
//
// Example:
//
//	mailer, err := di.Resolve[*Mailer](c, "mailer")
//	if err != nil {
//	    return fmt.Errorf("failed to get mailer: %w", err)
//	}
func Resolve[T any](c producer.Container, key string) (T, error) {
	var zero T
	instance, err := c.Get(key)
	if err != nil {
		return zero, fmt.Errorf("di: failed to resolve %s: %w", key, err)
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: service %s is %T, expected %T", key, instance, zero)
	}
	return result, nil
}

// TryResolve resolves a service, returns zero value and false if it cannot
// be built or has a different type.
//
// Example:
//
//	if cache, ok := di.TryResolve[Cache](c, "cache"); ok {
//	    cache.Warm()
//	}
func TryResolve[T any](c producer.Container, key string) (T, bool) {
	result, err := Resolve[T](c, key)
	return result, err == nil
}

// Resolver returns a producer that resolves key from c on every call.
func Resolver[T any](c producer.Container, key string) func() (T, error) {
	return func() (T, error) {
		return Resolve[T](c, key)
	}
}
