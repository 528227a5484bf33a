// Package config handles configuration loading and management for hitshell.
//
// It provides functionality for:
//   - Loading configuration from hitshell.yaml or .hitshell.yaml files
//   - Default configuration values
//   - ${VAR} expansion of string values
package config
