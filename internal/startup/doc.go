// Package startup handles process initialization: configuration loading
// from environment variables, build information, startup logging, and
// HTTP route introspection.
package startup
