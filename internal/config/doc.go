// Package config loads, defaults, and validates pkgkit configuration.
//
// Configuration comes from a TOML file (~/.config/pkgkit/config.toml by
// default), overlaid with PKGKIT_* environment variables. All path fields in
// the returned Config are expanded and absolute.
package config
