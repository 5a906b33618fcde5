// Package config loads, validates, and normalizes lector configuration.
//
// Configuration lives in a TOML file (default ~/.config/lector/config.toml)
// split into sections per subsystem: paths, chunking, synthesis, engine,
// export, library, workflow, logging, and notifications. Load applies
// defaults, expands ~ in path values, pulls secrets from the environment,
// and validates the result so downstream packages can trust every field.
package config
