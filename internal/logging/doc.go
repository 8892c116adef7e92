// Package logging provides a leveled printf-style logging facade for the
// photo wallet, backed by zap.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the DEBUG or LOG_LEVEL environment
// variables. LOG_FORMAT=json switches the console encoder to JSON.
package logging
