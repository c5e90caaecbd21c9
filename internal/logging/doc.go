// Package logging provides structured logging for the MemBrowse analyzer.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the analysis pipeline. Output is silent by
// default so that report JSON on stdout stays clean; set the
// MEMBROWSE_LOG_LEVEL environment variable to enable console logging on
// stderr.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed pipeline info (per-region resolution, DWARF walk)
//   - Info: Normal operations (analysis completion, timings)
//   - Warn: Non-fatal issues (malformed compilation units, skipped data)
//   - Error: Fatal issues (unreadable inputs)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Analysis complete",
//	    zap.String("elf", "firmware.elf"),
//	    zap.Int("sections", 14),
//	)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
