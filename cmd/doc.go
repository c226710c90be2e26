// Package cmd implements the command-line interface for eventmail.
//
// This package provides the following commands:
//   - serve: Start the HTTP API server for the browser frontend
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
