// Package config loads a service's health-checking setup from YAML files and
// COPACETIC_* environment variables, and builds the registry and scheduler it
// describes.
package config
