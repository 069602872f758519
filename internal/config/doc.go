// Package config loads, normalizes, and validates clipforge's TOML
// configuration. Lookup order: explicit --config flag, then
// ~/.config/clipforge/config.toml, then ./clipforge.toml. Missing files fall
// back to repository defaults so the daemon can run with zero configuration.
package config
