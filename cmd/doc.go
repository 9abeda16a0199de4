// Package cmd implements the command-line interface for the dRow row store
// client. It provides a hierarchical command structure with operations for
// reading, mutating and scanning rows on a remote server.
//
// The package is organized into several subpackages:
//
//   - row: Commands for row operations (get, set, scan, incr, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See drow -help for a list of all commands.
package cmd
