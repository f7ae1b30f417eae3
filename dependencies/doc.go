// Package dependencies applies declarative dependency maps to a di.Container.
//
// A Dependencies value lists services (ready instances), invokables (classes
// built with their zero-arg constructor), factories, aliases, delegators and
// per-service shared flags. Config.Configure turns every entry into a lazy
// producer through the producer package and registers it; nothing is built
// until the container is asked for it.
//
//	cfg := dependencies.Config{Dependencies: dependencies.Dependencies{
//	    Invokables: map[string]string{"clock": "app.SystemClock"},
//	    Factories:  map[string]producer.FactorySpec{"mailer": producer.ClassName("app.MailerFactory")},
//	    Aliases:    map[string]string{"mail": "mailer"},
//	    Delegators: map[string][]producer.DelegatorSpec{"mailer": {producer.DelegatorClass("app.Retrying")}},
//	}}
//	err := cfg.Configure(container)
//
// The same map can be written as a YAML Document and read with Load.
package dependencies
