// Package config loads service configuration for diconfig applications.
//
// It uses Viper to read a YAML file and environment variables, after loading
// an optional .env file with godotenv. Every key of the target struct can be
// overridden by an environment variable named after its path with the
// service prefix, e.g. MAILER_LOGGING_LEVEL for logging.level.
//
// # Usage
//
//	var cfg config.ServiceConfig
//	err := config.LoadConfig("mailer", &cfg)
//
// The dependency document named by dependencies.file is not read here: it is
// parsed by the dependencies package, which keeps service names case-sensitive.
package config
