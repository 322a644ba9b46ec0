// Package config loads, normalizes, and validates catkeygen
// configuration from a TOML file, with environment overrides for
// secrets. Unset values fall back to repository defaults so a minimal
// config only needs the NYT API key and the catalog base URL.
package config
