// Package config resolves the settings the Bink actions need (seed phrase,
// RPC endpoints, API keys) from host settings and the process environment, and
// loads the daemon-level runtime configuration from YAML and BINKD_ variables.
package config
