// Package server hosts the ClipTide API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// security headers, CORS, and rate limiting so handlers all share common
// protections and instrumentation.
package server
