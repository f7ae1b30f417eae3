// Package logger provides structured logging for diconfig using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers. Containers tag their entries with the
// container ID so that several containers in one process stay apart.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("di")
//	log.Debug("service built", logger.Fields(logger.FieldService, name))
package logger
