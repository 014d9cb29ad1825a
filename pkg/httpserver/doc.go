// Package httpserver wraps net/http's Server with graceful shutdown,
// functional options, structured logging, and health probe handlers.
package httpserver
