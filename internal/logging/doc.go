// Package logging wraps log/slog with clipforge conventions: typed attribute
// helpers, standardized field names, console and JSON handlers, and loggers
// derived from application config.
package logging
