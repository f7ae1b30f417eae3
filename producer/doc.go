// Package producer turns declared factory and delegator specifications into
// lazily evaluated Producers.
//
// Building a Producer only captures data and never fails; all checks (is the
// class registered, does it implement Factory, does the object have the
// method) run when the Producer is invoked, and every such failure surfaces
// as a SERVICE_NOT_FOUND error naming the service and the offending layer.
//
// # Factories
//
//	p := producer.MakeProducer(c, "mailer", producer.ClassName("app.MailerFactory"))
//	mailer, err := p()
//
// # Delegators
//
// The first delegator in the list is the outermost one:
//
//	final := producer.MakeDelegatedProducer([]producer.DelegatorSpec{
//	    producer.DelegatorClass("app.LoggingDelegator"), // runs around everything below
//	    producer.DelegatorFn(cacheDelegator),            // wraps base directly
//	}, c, "mailer", p)
//
// # Container-held factories
//
// Service and ServiceMethod (and their delegator counterparts) find the
// factory object in the container when the Producer runs. Detach converts an
// object-backed spec into that form, so the object itself can be registered
// as a service. Failed container lookups are returned as they are.
//
// The package holds no caches and never logs; caching shared instances is
// the container's job.
package producer
