// Package config loads, normalizes, and validates the streamvault TOML
// configuration shared by the CLI host and the reconciler agent.
package config
