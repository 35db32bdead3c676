// Package validation provides common validation utilities for configuration
// parameters across the fiberflow packages.
//
// Every helper returns a *errors.ValidationError so constructors and config
// loaders report rejected values with consistent messages.
package validation
