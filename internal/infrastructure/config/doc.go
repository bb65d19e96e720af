// Package config provides configuration loading for Hearthwatch Core.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by HEARTHWATCH_* environment variables. The loaded
// Config is validated before use; secrets (InfluxDB token, JWT secret, push
// channel token) should always come from the environment in production.
//
// The tracker policy section is the home of the per-category constants the
// rest of the system deliberately does not hard-code: notification cooldown,
// pending-clear delay, and power thresholds all live here so a noisy sensor
// can be tamed without a rebuild.
package config
