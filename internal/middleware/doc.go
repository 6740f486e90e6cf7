// Package middleware provides the HTTP middleware chain: access
// logging in W3C extended format, Prometheus request metrics with
// route normalization, and gzip compression for JSON responses.
package middleware
