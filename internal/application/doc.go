// Package application provides application initialization and dependency wiring.
// It creates the limits storage, metrics manager, handlers, routers and the
// HTTP server, keeping the main package focused on CLI parsing and shutdown.
package application
