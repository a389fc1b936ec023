// Package config defines the configuration model for Bastion and handles
// loading it from YAML files with environment variable overrides.
//
// Configuration loading follows a fixed sequence: parse YAML, apply defaults,
// apply BASTION_* environment overrides, then validate. Validation reports
// every problem at once rather than stopping at the first.
package config
