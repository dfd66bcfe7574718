// Package config loads, normalizes, and validates ptrack configuration.
//
// Values are layered: Default() first, then a TOML file, then PTRACK_*
// environment variables. Command-line flags are applied by the CLI after
// Load returns. The parameters that need an operator decision (the size
// bound used by attribute filtering in particular) have no silent default
// and are rejected by Validate when empty.
package config
