// Package services defines shared utilities consumed by the pipeline
// commands and the archive layer.
//
// Key responsibilities:
//   - Context helpers that stamp rig names, operation names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exit codes and log levels.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across commands.
package services
