// Package logger builds configured slog loggers and provides attribute
// helpers with the canonical keys used across the service, so every
// component logs event and subscription identifiers the same way.
package logger
