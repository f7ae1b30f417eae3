// Package di provides the service container that dependency maps are
// configured into.
//
// Services are registered as lazy producers and built on first Get. Shared
// services are cached; non-shared services are rebuilt on every Get. Aliases
// resolve through to their target, and synthetic services are placeholders
// whose value is supplied with Set after the container is compiled.
//
// # Registration
//
//	c := di.NewContainer()
//	c.Register("mailer", func() (any, error) {
//	    return NewMailer(), nil
//	})
//	c.Alias("mail", "mailer")
//	if err := c.Compile(); err != nil { ... }
//
// # Resolution
//
//	m := di.MustResolve[*Mailer](c, "mail")
package di
