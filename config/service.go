package config

import (
	"fmt"

	"github.com/kbukum/diconfig/logger"
	"github.com/kbukum/diconfig/observability"
	"github.com/kbukum/diconfig/validation"
	"github.com/kbukum/diconfig/version"
)

// ServiceConfig contains the configuration fields every service needs.
// Projects extend this by embedding it in their own config structs.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    SMTP SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
//	}
type ServiceConfig struct {
	Name         string               `yaml:"name" mapstructure:"name" validate:"required"`
	Environment  string               `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version      string               `yaml:"version" mapstructure:"version"`
	Debug        bool                 `yaml:"debug" mapstructure:"debug"`
	Logging      logger.Config        `yaml:"logging" mapstructure:"logging"`
	Tracing      observability.Config `yaml:"tracing" mapstructure:"tracing"`
	Dependencies DependenciesConfig   `yaml:"dependencies" mapstructure:"dependencies"`
}

// DependenciesConfig locates the dependency document of a service.
type DependenciesConfig struct {
	// File is a YAML dependency document applied by the bootstrap layer.
	File string `yaml:"file" mapstructure:"file" validate:"omitempty,file"`
	// ServicesAsSynthetic declares document services as synthetic instead of
	// setting their values.
	ServicesAsSynthetic bool `yaml:"services_as_synthetic" mapstructure:"services_as_synthetic"`
}

// GetServiceConfig returns the base ServiceConfig.
// When embedded in a larger config struct, this method is promoted
// so the embedding struct automatically satisfies bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	// Propagate service name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("config.tracing: %w", err)
	}
	return nil
}
