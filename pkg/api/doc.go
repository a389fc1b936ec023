// Package api hosts the HTTP server for the scan service: route wiring, the
// middleware chain, and graceful lifecycle management.
package api
