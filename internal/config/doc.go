// Package config loads and validates the slack-relay YAML configuration,
// expanding ${VAR} environment references and parsing duration strings.
package config
