// Package errors provides the error taxonomy shared by the producer engine,
// the container and the configuration layer.
//
// Every failure carries a machine-readable code, a human-readable message,
// optional structured details (which service, which layer) and the
// underlying cause, reachable through errors.Unwrap.
package errors
