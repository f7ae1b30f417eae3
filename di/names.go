package di

// PkgNames defines the service names registered by the bootstrap layer.
// Projects embed this struct in their own service name sets.
type PkgNames struct {
	Config    string
	Logger    string
	Container string
}

// Pkg contains the service names registered by the bootstrap layer.
var Pkg = PkgNames{
	Config:    "config",
	Logger:    "logger",
	Container: "container",
}
