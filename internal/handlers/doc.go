// Package handlers provides the HTTP request handlers for the mpv
// remote control API.
//
// It includes handlers for:
//   - Player instance lifecycle and remote commands
//   - Audio and subtitle track selection
//   - Share browsing and track lookup
//   - Thumbnail serving
//   - Health checks, version, and service status
//
// Handlers translate routes onto the core services 1:1; status code
// mapping from the error taxonomy lives here, not in the services.
package handlers
